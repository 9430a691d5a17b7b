// Package security annotates discovered Universal Proxy endpoints with
// findings.
//
// The rules are static checks over what discovery already knows: how the
// endpoint was reached, whether it is publicly exposed, and, when a deep
// probe ran, whether the MCP endpoint accepted an unauthenticated session.
// Rules can be disabled by ID through security.disabledRules.
package security
