package config

import "time"

const (
	// DefaultProxyPort is the port the Universal Proxy listens on.
	DefaultProxyPort = 8911

	// DefaultContainerName is the container name used by the proxy deployment.
	DefaultContainerName = "suse-ai-up"

	// DefaultMaxConcurrent bounds concurrent health checks inside one cluster.
	DefaultMaxConcurrent = 3

	// DefaultHealthTimeout is the per-request health check timeout.
	DefaultHealthTimeout = 5 * time.Second

	// DefaultHealthPath is appended to every base URL when checking liveness.
	DefaultHealthPath = "/health"

	// DefaultMonitorInterval is how often the monitor polls its endpoints.
	DefaultMonitorInterval = 2 * time.Minute

	// DefaultMonitorListen is the address of the monitor status server.
	DefaultMonitorListen = "127.0.0.1:8919"

	// DefaultRancherTimeout bounds a single management API request.
	DefaultRancherTimeout = 30 * time.Second

	// DefaultRancherRetries is the number of attempts for a management API request.
	DefaultRancherRetries = 3
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() UpscoutConfig {
	return UpscoutConfig{
		Rancher: RancherConfig{
			Timeout:    DefaultRancherTimeout,
			MaxRetries: DefaultRancherRetries,
		},
		Discovery: DiscoveryConfig{
			Port:          DefaultProxyPort,
			ContainerName: DefaultContainerName,
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Health: HealthConfig{
			Timeout: DefaultHealthTimeout,
			Path:    DefaultHealthPath,
		},
		Monitor: MonitorConfig{
			Interval: DefaultMonitorInterval,
			Listen:   DefaultMonitorListen,
		},
		Security: SecurityConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			Format: "table",
		},
		LogLevel: "info",
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *UpscoutConfig) {
	def := GetDefaultConfig()
	if cfg.Rancher.Timeout == 0 {
		cfg.Rancher.Timeout = def.Rancher.Timeout
	}
	if cfg.Rancher.MaxRetries == 0 {
		cfg.Rancher.MaxRetries = def.Rancher.MaxRetries
	}
	if cfg.Discovery.Port == 0 {
		cfg.Discovery.Port = def.Discovery.Port
	}
	if cfg.Discovery.ContainerName == "" {
		cfg.Discovery.ContainerName = def.Discovery.ContainerName
	}
	if cfg.Discovery.MaxConcurrent == 0 {
		cfg.Discovery.MaxConcurrent = def.Discovery.MaxConcurrent
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = def.Health.Timeout
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = def.Health.Path
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = def.Monitor.Interval
	}
	if cfg.Monitor.Listen == "" {
		cfg.Monitor.Listen = def.Monitor.Listen
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = def.Output.Format
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}
