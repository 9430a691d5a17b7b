package cmd

import (
	"context"
	"path/filepath"

	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/kube"
	"github.com/suse/upscout/internal/mcpprobe"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/internal/security"
	"github.com/suse/upscout/pkg/logging"
)

// clusterSource lists and resolves the clusters discovery runs against.
// *rancher.Client and *kube.KubeconfigFactory implement it.
type clusterSource interface {
	AccessibleClusters(ctx context.Context) ([]rancher.Cluster, error)
	GetClusterByName(ctx context.Context, name string) (rancher.Cluster, error)
}

// environment wires the discovery components for one command run.
type environment struct {
	cfg      config.UpscoutConfig
	clusters clusterSource
	factory  kube.Factory
	checker  *health.Checker
	prober   *discovery.Prober
	// endpoint names the cluster source in error messages.
	endpoint string
}

// newEnvironment builds the environment from c. Clusters come from the
// kubeconfig when kubeconfig.enabled is set, else from the Rancher server.
func newEnvironment(c config.UpscoutConfig) (*environment, error) {
	env := &environment{cfg: c, checker: newChecker(c)}

	if c.Kubeconfig.Enabled {
		kf := kube.NewKubeconfigFactory(c.Kubeconfig.Path)
		env.clusters, env.factory = kf, kf
		env.endpoint = "kubeconfig"
		if c.Kubeconfig.Path != "" {
			env.endpoint = c.Kubeconfig.Path
		}
		logging.Debug("CLI", "Using kubeconfig contexts as clusters")
	} else {
		client, err := rancher.NewClient(c.Rancher)
		if err != nil {
			return nil, err
		}
		env.clusters, env.factory = client, kube.NewRancherFactory(c.Rancher)
		env.endpoint = client.BaseURL()
	}

	env.prober = discovery.NewProber(env.factory, env.checker, discoveryOptions(c))
	return env, nil
}

// newScanner creates a scanner over the environment. deep enables the MCP
// handshake for every instance.
func (e *environment) newScanner(deep bool) *discovery.Scanner {
	var opts []discovery.ScannerOption
	if deep {
		opts = append(opts, discovery.WithMCPProber(mcpprobe.New(mcpprobe.WithClientVersion(GetVersion()))))
	}
	if e.cfg.Security.Enabled {
		opts = append(opts, discovery.WithAnnotator(security.NewAnnotator(e.cfg.Security.DisabledRules)))
	}
	return discovery.NewScanner(e.clusters, e.prober, opts...)
}

func newChecker(c config.UpscoutConfig) *health.Checker {
	return health.NewChecker(
		health.WithTimeout(c.Health.Timeout),
		health.WithPath(c.Health.Path),
	)
}

func discoveryOptions(c config.UpscoutConfig) discovery.Options {
	return discovery.Options{
		Port:              c.Discovery.Port,
		ContainerName:     c.Discovery.ContainerName,
		AllowedNamespaces: c.Discovery.AllowedNamespaces,
		HealthTimeout:     c.Health.Timeout,
		MaxConcurrent:     c.Discovery.MaxConcurrent,
		ServiceURLs:       c.Discovery.ServiceURLs,
	}
}

// openReportStore returns the store scans are saved to, or nil when the
// config directory cannot be determined.
func openReportStore() discovery.ReportStore {
	if flags.ConfigPath != "" {
		return config.NewStorageWithPath(filepath.Dir(flags.ConfigPath))
	}
	store, err := config.NewStorage()
	if err != nil {
		logging.WarnErr("CLI", err, "Scan reports will not be saved")
		return nil
	}
	return store
}
