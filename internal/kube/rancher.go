package kube

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"k8s.io/client-go/rest"

	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/pkg/logging"
)

// userAgent identifies upscout to the API servers.
const userAgent = "upscout"

// RancherFactory builds cluster clients that go through the Rancher
// Kubernetes API proxy at <rancher-url>/k8s/clusters/<id>. Clients are cached
// per cluster ID.
type RancherFactory struct {
	cfg config.RancherConfig

	newClient func(*rest.Config) (ClusterClient, error)

	mu      sync.Mutex
	clients map[string]ClusterClient
}

// NewRancherFactory creates a factory for the given Rancher server.
func NewRancherFactory(cfg config.RancherConfig) *RancherFactory {
	return &RancherFactory{
		cfg:       cfg,
		newClient: NewForConfig,
		clients:   make(map[string]ClusterClient),
	}
}

// RESTConfig returns the client-go configuration for a downstream cluster.
func (f *RancherFactory) RESTConfig(clusterID string) (*rest.Config, error) {
	if f.cfg.URL == "" {
		return nil, fmt.Errorf("rancher url is not configured")
	}
	if clusterID == "" {
		return nil, fmt.Errorf("cluster ID is required")
	}
	base, err := url.Parse(strings.TrimRight(f.cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid rancher url %q: %w", f.cfg.URL, err)
	}
	base.Path = base.Path + "/k8s/clusters/" + url.PathEscape(clusterID)

	restCfg := &rest.Config{
		Host:        base.String(),
		BearerToken: f.cfg.Token,
		UserAgent:   userAgent,
		Timeout:     f.cfg.Timeout,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: f.cfg.InsecureSkipVerify,
			CAFile:   f.cfg.CAFile,
		},
	}
	return restCfg, nil
}

// ForCluster implements Factory.
func (f *RancherFactory) ForCluster(_ context.Context, clusterID string) (ClusterClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[clusterID]; ok {
		return c, nil
	}

	restCfg, err := f.RESTConfig(clusterID)
	if err != nil {
		return nil, err
	}
	c, err := f.newClient(restCfg)
	if err != nil {
		return nil, fmt.Errorf("cluster %s: %w", clusterID, err)
	}
	logging.Debug("Kube", "Created client for cluster %s via %s", clusterID, restCfg.Host)
	f.clients[clusterID] = c
	return c, nil
}
