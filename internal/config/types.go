package config

import "time"

// UpscoutConfig is the top-level configuration structure for upscout.
type UpscoutConfig struct {
	Rancher    RancherConfig    `yaml:"rancher"`
	Kubeconfig KubeconfigConfig `yaml:"kubeconfig,omitempty"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Health     HealthConfig     `yaml:"health"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Security   SecurityConfig   `yaml:"security"`
	Output     OutputConfig     `yaml:"output"`
	LogLevel   string           `yaml:"logLevel,omitempty"`
}

// RancherConfig describes how to reach the Rancher management server.
type RancherConfig struct {
	URL string `yaml:"url,omitempty"` // Base URL, e.g. https://rancher.example.com
	// Token is a Rancher API token (token-xxxxx:secret). Prefer UPSCOUT_RANCHER_TOKEN.
	Token              string        `yaml:"token,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify,omitempty"`
	CAFile             string        `yaml:"caFile,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	MaxRetries         uint          `yaml:"maxRetries,omitempty"`
}

// KubeconfigConfig enables discovery straight from kubeconfig contexts
// instead of the Rancher proxy. Cluster IDs are context names in that mode.
type KubeconfigConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// DiscoveryConfig tunes the service/pod detection.
type DiscoveryConfig struct {
	Port              int      `yaml:"port,omitempty"`
	ContainerName     string   `yaml:"containerName,omitempty"`
	AllowedNamespaces []string `yaml:"allowedNamespaces,omitempty"`
	MaxConcurrent     int      `yaml:"maxConcurrent,omitempty"`
	// DeepProbe performs an MCP initialize handshake against every healthy endpoint.
	DeepProbe bool `yaml:"deepProbe,omitempty"`
	// ServiceURLs short-circuits address resolution for pods, like a pinned proxy URL.
	ServiceURLs []string `yaml:"serviceURLs,omitempty"`
}

// HealthConfig configures HTTP liveness checks.
type HealthConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Path    string        `yaml:"path,omitempty"`
}

// MonitorConfig configures the long-running health monitor.
type MonitorConfig struct {
	Interval  time.Duration     `yaml:"interval,omitempty"`
	Listen    string            `yaml:"listen,omitempty"`
	Endpoints map[string]string `yaml:"endpoints,omitempty"` // name -> base URL
}

// SecurityConfig configures finding annotation.
type SecurityConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DisabledRules []string `yaml:"disabledRules,omitempty"`
}

// OutputConfig holds output defaults.
type OutputConfig struct {
	Format   string `yaml:"format,omitempty"`
	Template string `yaml:"template,omitempty"`
}
