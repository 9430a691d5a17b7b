// Package mcpserver exposes upscout's discovery operations as MCP tools.
//
// The server is meant to be launched by an AI assistant over stdio, or run
// as a long-lived streamable HTTP endpoint. Every tool returns JSON text so
// that assistants can consume results programmatically:
//
//   - list_clusters: the accessible downstream clusters
//   - discover_cluster: scan one cluster for Universal Proxy instances
//   - discover_clusters: scan several clusters, or all accessible ones
//   - retry_failed_clusters: rescan only the clusters that failed last time
//   - check_health: one-shot health check of a proxy URL or load balancer address
//
// Discovery tools share one scanner, so a scan started from a tool is
// rejected while another one is running. The result of every scan is
// persisted when a report store is configured, which lets the CLI's
// "discover --retry-failed" pick up where an assistant left off.
package mcpserver
