// Package logging provides the structured logging used throughout upscout.
//
// It wraps Go's slog package with subsystem-tagged helpers so every log line
// carries the component that produced it:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Scanner", "Scanning cluster %s", name)
//	logging.Debug("Prober", "Health check for %s: %v", url, healthy)
//	logging.Warn("Rancher", "Cluster %s not found", name)
//	logging.Error("Monitor", err, "Failed to reload configuration")
//
// # Subsystems
//
//   - Config: configuration loading and watching
//   - Rancher: management API access
//   - Kube: per-cluster Kubernetes clients
//   - Prober: service and pod detection inside one cluster
//   - Scanner: multi-cluster orchestration
//   - Health: health checks and the monitor
//   - Security: finding annotation
//   - MCPServer: the MCP tool server
//
// # Controller-Runtime Integration
//
// InitForCLI also installs a logr bridge into controller-runtime, so client and
// REST mapper logs go through the same handler instead of warning about an
// uninitialized logger.
//
// All functions are safe for concurrent use.
package logging
