package kube

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/suse/upscout/pkg/logging"
)

// KubeconfigFactory builds cluster clients from kubeconfig contexts. The
// cluster ID is the context name.
type KubeconfigFactory struct {
	rules *clientcmd.ClientConfigLoadingRules

	newClient func(*rest.Config) (ClusterClient, error)

	mu      sync.Mutex
	clients map[string]ClusterClient
}

// NewKubeconfigFactory uses the kubeconfig at path, or the standard loading
// rules ($KUBECONFIG, ~/.kube/config) when path is empty.
func NewKubeconfigFactory(path string) *KubeconfigFactory {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}
	return &KubeconfigFactory{
		rules:     rules,
		newClient: NewForConfig,
		clients:   make(map[string]ClusterClient),
	}
}

// Contexts returns the sorted context names of the kubeconfig.
func (f *KubeconfigFactory) Contexts() ([]string, error) {
	raw, err := f.rules.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CurrentContext returns the kubeconfig's current context.
func (f *KubeconfigFactory) CurrentContext() (string, error) {
	raw, err := f.rules.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return raw.CurrentContext, nil
}

// RESTConfig returns the client-go configuration of a context.
func (f *KubeconfigFactory) RESTConfig(contextName string) (*rest.Config, error) {
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(f.rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build config for context %q: %w", contextName, err)
	}
	cfg.UserAgent = userAgent
	return cfg, nil
}

// ForCluster implements Factory.
func (f *KubeconfigFactory) ForCluster(_ context.Context, contextName string) (ClusterClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[contextName]; ok {
		return c, nil
	}
	restCfg, err := f.RESTConfig(contextName)
	if err != nil {
		return nil, err
	}
	c, err := f.newClient(restCfg)
	if err != nil {
		return nil, fmt.Errorf("context %s: %w", contextName, err)
	}
	logging.Debug("Kube", "Created client for context %s (%s)", contextName, restCfg.Host)
	f.clients[contextName] = c
	return c, nil
}
