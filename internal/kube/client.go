package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ClusterClient is the read-only view of one cluster used by discovery.
// An empty namespace lists across all namespaces.
type ClusterClient interface {
	ListServices(ctx context.Context, namespace string) ([]corev1.Service, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListIngresses(ctx context.Context, namespace string) ([]networkingv1.Ingress, error)
}

// Factory hands out a ClusterClient per cluster ID.
type Factory interface {
	ForCluster(ctx context.Context, clusterID string) (ClusterClient, error)
}

// NewScheme returns a scheme with the built-in Kubernetes types registered.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

// clusterClient implements ClusterClient on top of a controller-runtime reader.
type clusterClient struct {
	reader client.Reader
}

// NewClusterClient wraps a controller-runtime reader. Tests pass a fake client.
func NewClusterClient(reader client.Reader) ClusterClient {
	return &clusterClient{reader: reader}
}

// NewForConfig creates a ClusterClient talking to the API server in cfg.
func NewForConfig(cfg *rest.Config) (ClusterClient, error) {
	c, err := client.New(cfg, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return NewClusterClient(c), nil
}

func (c *clusterClient) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	list := &corev1.ServiceList{}
	if err := c.reader.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return list.Items, nil
}

func (c *clusterClient) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list := &corev1.PodList{}
	if err := c.reader.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return list.Items, nil
}

func (c *clusterClient) ListIngresses(ctx context.Context, namespace string) ([]networkingv1.Ingress, error) {
	list := &networkingv1.IngressList{}
	if err := c.reader.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list ingresses: %w", err)
	}
	return list.Items, nil
}

// StaticFactory serves pre-built clients by cluster ID.
type StaticFactory map[string]ClusterClient

// ForCluster implements Factory.
func (f StaticFactory) ForCluster(_ context.Context, clusterID string) (ClusterClient, error) {
	c, ok := f[clusterID]
	if !ok {
		return nil, fmt.Errorf("no client for cluster %q", clusterID)
	}
	return c, nil
}
