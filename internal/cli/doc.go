// Package cli provides the output and error plumbing shared by upscout's
// commands.
//
// # Output Formats
//
// Printer renders command results in one of five formats:
//   - table: kubectl-style plain table (PlainTableWriter), status cells colored
//   - wide: the same table with additional columns
//   - json: indented JSON
//   - yaml: YAML with the JSON field names
//   - template: a Go text/template with the sprig function library, executed
//     against the JSON form of the result
//
// Views (ClusterView, InstanceView, ScanResultView, HealthView, MonitorView,
// FindingView) adapt domain types to table rows.
//
// # Progress
//
// ScanProgress drives a spinner from discovery progress updates. The
// suffix shows the current cluster and, once one cluster is done, the ETA.
//
// # Errors and exit codes
//
// Commands return typed errors that ExitCodeFor maps to process exit codes:
// 0 success, 1 error, 2 configuration error, 3 partial discovery failure.
// ExplainRancherError attaches guidance to authentication and connectivity
// failures against the Rancher API.
package cli
