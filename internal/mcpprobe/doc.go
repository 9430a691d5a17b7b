// Package mcpprobe performs a read-only MCP handshake against a discovered
// Universal Proxy.
//
// A probe connects to <base>/mcp with the streamable HTTP transport, runs
// initialize and tools/list, and closes the session. A server that answers
// with 401 is reported with AuthRequired set instead of an error, so callers
// can tell a protected endpoint from a broken one.
package mcpprobe
