package kube

import (
	"context"
	"fmt"
	"sort"

	"github.com/suse/upscout/internal/rancher"
)

// AccessibleClusters lists the kubeconfig contexts as clusters, so that
// discovery can run without a Rancher server. Every context counts as
// active; reachability is only known once discovery connects.
func (f *KubeconfigFactory) AccessibleClusters(_ context.Context) ([]rancher.Cluster, error) {
	raw, err := f.rules.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clusters := make([]rancher.Cluster, 0, len(raw.Contexts))
	for name, kctx := range raw.Contexts {
		c := rancher.Cluster{ID: name, Name: name, State: rancher.StateActive, Provider: "kubeconfig"}
		if kc, ok := raw.Clusters[kctx.Cluster]; ok {
			c.APIEndpoint = kc.Server
		}
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Name < clusters[j].Name })
	return clusters, nil
}

// GetClusterByName resolves a context name.
func (f *KubeconfigFactory) GetClusterByName(ctx context.Context, name string) (rancher.Cluster, error) {
	clusters, err := f.AccessibleClusters(ctx)
	if err != nil {
		return rancher.Cluster{}, err
	}
	for _, c := range clusters {
		if c.Name == name {
			return c, nil
		}
	}
	return rancher.Cluster{}, fmt.Errorf("context %q: %w", name, rancher.ErrClusterNotFound)
}
