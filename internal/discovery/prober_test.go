package discovery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/kube"
)

// fakeNetwork answers health checks by host:port. Unknown hosts refuse the
// connection.
type fakeNetwork struct {
	mu      sync.Mutex
	status  map[string]int
	checked []string
}

func newFakeNetwork(status map[string]int) *fakeNetwork {
	return &fakeNetwork{status: status}
}

func (n *fakeNetwork) RoundTrip(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	n.checked = append(n.checked, req.URL.Host)
	code, ok := n.status[req.URL.Host]
	n.mu.Unlock()
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(`{"status":"ok","version":"1.0.0"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (n *fakeNetwork) Checked() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.checked...)
}

func (n *fakeNetwork) checker() *health.Checker {
	return health.NewChecker(health.WithHTTPClient(&http.Client{Transport: n}))
}

// fakeCluster returns fixed object lists in the given order.
type fakeCluster struct {
	services   []corev1.Service
	pods       []corev1.Pod
	ingresses  []networkingv1.Ingress
	serviceErr error
	podErr     error
	ingressErr error
}

func (c *fakeCluster) ListServices(_ context.Context, ns string) ([]corev1.Service, error) {
	if c.serviceErr != nil {
		return nil, c.serviceErr
	}
	var out []corev1.Service
	for _, s := range c.services {
		if ns == "" || s.Namespace == ns {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *fakeCluster) ListPods(_ context.Context, ns string) ([]corev1.Pod, error) {
	if c.podErr != nil {
		return nil, c.podErr
	}
	var out []corev1.Pod
	for _, p := range c.pods {
		if ns == "" || p.Namespace == ns {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCluster) ListIngresses(_ context.Context, ns string) ([]networkingv1.Ingress, error) {
	if c.ingressErr != nil {
		return nil, c.ingressErr
	}
	var out []networkingv1.Ingress
	for _, i := range c.ingresses {
		if ns == "" || i.Namespace == ns {
			out = append(out, i)
		}
	}
	return out, nil
}

func proxyService(name, ns, clusterIP string, port int32) corev1.Service {
	return corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Spec: corev1.ServiceSpec{
			Type:      corev1.ServiceTypeClusterIP,
			ClusterIP: clusterIP,
			Ports:     []corev1.ServicePort{{Port: port, TargetPort: intstr.FromInt32(port)}},
		},
	}
}

func proxyPod(name, ns, podIP, hostIP string) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Spec: corev1.PodSpec{Containers: []corev1.Container{{
			Name:  DefaultContainerName,
			Ports: []corev1.ContainerPort{{ContainerPort: DefaultPort}},
		}}},
		Status: corev1.PodStatus{PodIP: podIP, HostIP: hostIP},
	}
}

func TestProber_FindService_FirstHealthyWins(t *testing.T) {
	cluster := &fakeCluster{services: []corev1.Service{
		proxyService("web", "default", "10.43.0.1", 80),
		proxyService("proxy-a", "suse-ai-up", "10.43.0.2", DefaultPort),
		proxyService("proxy-b", "suse-ai-up", "10.43.0.3", DefaultPort),
		proxyService("proxy-c", "suse-ai-up", "10.43.0.4", DefaultPort),
	}}
	net := newFakeNetwork(map[string]int{
		"10.43.0.2:8911": http.StatusServiceUnavailable,
		"10.43.0.3:8911": http.StatusOK,
		"10.43.0.4:8911": http.StatusOK,
	})
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

	svc, err := p.FindService(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.Equal(t, "proxy-b", svc.Name)
	assert.Equal(t, "http://10.43.0.3:8911", svc.URL)
	assert.Equal(t, "10.43.0.3", svc.PrimaryIP)
	assert.Equal(t, SourceService, svc.Source)
	assert.Equal(t, DefaultPort, svc.Port)
	require.NotNil(t, svc.Health)
	assert.Equal(t, "1.0.0", svc.Health.Version)
	assert.Equal(t, []string{"10.43.0.2:8911", "10.43.0.3:8911"}, net.Checked())
}

func TestProber_FindService_TargetPortAndAddresses(t *testing.T) {
	lb := proxyService("proxy", "suse-ai-up", "10.43.0.9", 80)
	lb.Spec.Type = corev1.ServiceTypeLoadBalancer
	lb.Spec.Ports[0].TargetPort = intstr.FromInt32(DefaultPort)
	lb.Status.LoadBalancer.Ingress = []corev1.LoadBalancerIngress{{IP: "198.51.100.4"}}

	cluster := &fakeCluster{
		services: []corev1.Service{lb},
		ingresses: []networkingv1.Ingress{{
			ObjectMeta: metav1.ObjectMeta{Name: "proxy", Namespace: "suse-ai-up"},
			Spec: networkingv1.IngressSpec{
				Rules: []networkingv1.IngressRule{{
					Host: "up.example.com",
					IngressRuleValue: networkingv1.IngressRuleValue{HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path: "/",
							Backend: networkingv1.IngressBackend{Service: &networkingv1.IngressServiceBackend{
								Name: "proxy", Port: networkingv1.ServiceBackendPort{Number: 80},
							}},
						}},
					}},
				}},
			},
		}},
	}
	net := newFakeNetwork(map[string]int{"198.51.100.4:8911": http.StatusOK})
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

	svc, err := p.FindService(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "LoadBalancer", svc.Type)
	assert.Equal(t, []string{"198.51.100.4"}, svc.LoadBalancerIPs)
	assert.Equal(t, "http://198.51.100.4:8911", svc.URL)
	assert.Equal(t, []string{"up.example.com"}, svc.Hosts)
	assert.False(t, svc.PublicEndpoint)
}

func TestProber_FindService_None(t *testing.T) {
	headless := proxyService("proxy", "suse-ai-up", corev1.ClusterIPNone, DefaultPort)
	cluster := &fakeCluster{services: []corev1.Service{headless}}
	net := newFakeNetwork(nil)
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

	svc, err := p.FindService(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.Empty(t, net.Checked())
}

func TestProber_FindService_AllowedNamespaces(t *testing.T) {
	cluster := &fakeCluster{services: []corev1.Service{
		proxyService("proxy", "other", "10.43.0.2", DefaultPort),
		proxyService("proxy", "suse-ai-up", "10.43.0.3", DefaultPort),
	}}
	net := newFakeNetwork(map[string]int{"10.43.0.2:8911": 200, "10.43.0.3:8911": 200})
	opts := DefaultOptions()
	opts.AllowedNamespaces = []string{"suse-ai-up"}
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), opts)

	svc, err := p.FindService(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "suse-ai-up", svc.Namespace)
}

func TestProber_FindPods_CollectsAllHealthy(t *testing.T) {
	notProxy := proxyPod("web-0", "suse-ai-up", "10.42.0.9", "192.168.1.9")
	notProxy.Spec.Containers[0].Name = "web"

	wrongPort := proxyPod("proxy-x", "suse-ai-up", "10.42.0.8", "192.168.1.8")
	wrongPort.Spec.Containers[0].Ports[0].ContainerPort = 8080

	hostOnly := proxyPod("proxy-2", "suse-ai-up", "", "192.168.1.3")

	cluster := &fakeCluster{pods: []corev1.Pod{
		proxyPod("proxy-0", "suse-ai-up", "10.42.0.1", "192.168.1.1"),
		notProxy,
		proxyPod("proxy-1", "suse-ai-up", "10.42.0.2", "192.168.1.2"),
		wrongPort,
		hostOnly,
		proxyPod("proxy-3", "suse-ai-up", "10.42.0.4", "192.168.1.4"),
	}}
	net := newFakeNetwork(map[string]int{
		"10.42.0.1:8911":    200,
		"10.42.0.2:8911":    500,
		"192.168.1.3:8911":  204,
		"10.42.0.4:8911":    200,
		"10.42.0.9:8911":    200,
		"10.42.0.8:8911":    200,
		"192.168.1.99:8911": 200,
	})
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

	found, err := p.FindPods(context.Background(), "c-1")
	require.NoError(t, err)

	var names []string
	for _, d := range found {
		names = append(names, d.Name)
		assert.Equal(t, SourcePod, d.Source)
		assert.Equal(t, "Pod", d.Type)
	}
	assert.Equal(t, []string{"proxy-0", "proxy-2", "proxy-3"}, names)
	assert.True(t, found[1].HostIP)
	assert.Equal(t, "http://192.168.1.3:8911", found[1].URL)
	assert.False(t, found[0].HostIP)
	assert.Equal(t, []string{"192.168.1.1"}, found[0].ExternalIPs)
	assert.Len(t, net.Checked(), 4)
}

func TestProber_FindPods_ServiceURLOverride(t *testing.T) {
	cluster := &fakeCluster{pods: []corev1.Pod{proxyPod("proxy-0", "suse-ai-up", "10.42.0.1", "")}}
	net := newFakeNetwork(map[string]int{"up.internal:8911": 200})
	opts := DefaultOptions()
	opts.ServiceURLs = []string{"http://up.internal:8911", "http://ignored:8911"}
	p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), opts)

	found, err := p.FindPods(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "http://up.internal:8911", found[0].URL)
	assert.Equal(t, []string{"up.internal:8911"}, net.Checked())
}

func TestProber_FindPods_ListError(t *testing.T) {
	cluster := &fakeCluster{podErr: errors.New("forbidden")}
	p := NewProber(kube.StaticFactory{"c-1": cluster}, newFakeNetwork(nil).checker(), DefaultOptions())

	_, err := p.FindPods(context.Background(), "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to query cluster pods")
}

func TestProber_Discover(t *testing.T) {
	t.Run("service wins, pods not listed", func(t *testing.T) {
		cluster := &fakeCluster{
			services: []corev1.Service{proxyService("proxy", "suse-ai-up", "10.43.0.2", DefaultPort)},
			pods:     []corev1.Pod{proxyPod("proxy-0", "suse-ai-up", "10.42.0.1", "")},
		}
		net := newFakeNetwork(map[string]int{"10.43.0.2:8911": 200, "10.42.0.1:8911": 200})
		p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

		found, err := p.Discover(context.Background(), "c-1")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, SourceService, found[0].Source)
		assert.Equal(t, []string{"10.43.0.2:8911"}, net.Checked())
	})

	t.Run("service listing error falls back to pods", func(t *testing.T) {
		cluster := &fakeCluster{
			serviceErr: errors.New("forbidden"),
			pods:       []corev1.Pod{proxyPod("proxy-0", "suse-ai-up", "10.42.0.1", "")},
		}
		net := newFakeNetwork(map[string]int{"10.42.0.1:8911": 200})
		p := NewProber(kube.StaticFactory{"c-1": cluster}, net.checker(), DefaultOptions())

		found, err := p.Discover(context.Background(), "c-1")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, SourcePod, found[0].Source)
	})

	t.Run("unhealthy everywhere", func(t *testing.T) {
		cluster := &fakeCluster{
			services: []corev1.Service{proxyService("proxy", "suse-ai-up", "10.43.0.2", DefaultPort)},
			pods:     []corev1.Pod{proxyPod("proxy-0", "suse-ai-up", "10.42.0.1", "")},
		}
		p := NewProber(kube.StaticFactory{"c-1": cluster}, newFakeNetwork(nil).checker(), DefaultOptions())

		found, err := p.Discover(context.Background(), "c-1")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("unknown cluster", func(t *testing.T) {
		p := NewProber(kube.StaticFactory{}, newFakeNetwork(nil).checker(), DefaultOptions())
		_, err := p.Discover(context.Background(), "missing")
		require.Error(t, err)
	})

	t.Run("empty cluster id", func(t *testing.T) {
		p := NewProber(kube.StaticFactory{}, nil, DefaultOptions())
		_, err := p.Discover(context.Background(), "")
		require.Error(t, err)
	})
}

func TestProber_IngressesForService(t *testing.T) {
	backend := func(name string) networkingv1.IngressBackend {
		return networkingv1.IngressBackend{Service: &networkingv1.IngressServiceBackend{Name: name}}
	}
	rule := func(host, svc string) networkingv1.IngressRule {
		return networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{{Path: "/", Backend: backend(svc)}},
			}},
		}
	}
	def := backend("proxy")

	reader := fake.NewClientBuilder().WithScheme(kube.NewScheme()).WithObjects(
		&networkingv1.Ingress{
			ObjectMeta: metav1.ObjectMeta{Name: "by-rule", Namespace: "suse-ai-up"},
			Spec:       networkingv1.IngressSpec{Rules: []networkingv1.IngressRule{rule("a.example.com", "proxy")}},
		},
		&networkingv1.Ingress{
			ObjectMeta: metav1.ObjectMeta{Name: "by-default", Namespace: "suse-ai-up"},
			Spec:       networkingv1.IngressSpec{DefaultBackend: &def},
		},
		&networkingv1.Ingress{
			ObjectMeta: metav1.ObjectMeta{Name: "other-service", Namespace: "suse-ai-up"},
			Spec:       networkingv1.IngressSpec{Rules: []networkingv1.IngressRule{rule("b.example.com", "web")}},
		},
		&networkingv1.Ingress{
			ObjectMeta: metav1.ObjectMeta{Name: "other-namespace", Namespace: "tools"},
			Spec:       networkingv1.IngressSpec{Rules: []networkingv1.IngressRule{rule("c.example.com", "proxy")}},
		},
	).Build()

	p := NewProber(kube.StaticFactory{"c-1": kube.NewClusterClient(reader)}, nil, DefaultOptions())
	ingresses := p.IngressesForService(context.Background(), "c-1", "proxy", "suse-ai-up")

	var names []string
	for _, ing := range ingresses {
		names = append(names, ing.Name)
	}
	assert.ElementsMatch(t, []string{"by-rule", "by-default"}, names)
	assert.Equal(t, []string{"a.example.com"}, ingressHosts(ingresses))

	errCluster := &fakeCluster{ingressErr: errors.New("forbidden")}
	p = NewProber(kube.StaticFactory{"c-2": errCluster}, nil, DefaultOptions())
	assert.Empty(t, p.IngressesForService(context.Background(), "c-2", "proxy", "suse-ai-up"))
	assert.Empty(t, p.IngressesForService(context.Background(), "missing", "proxy", "suse-ai-up"))
}

func TestProber_WithControllerRuntimeClient(t *testing.T) {
	svc := proxyService("proxy", "suse-ai-up", "10.43.0.2", DefaultPort)
	reader := fake.NewClientBuilder().WithScheme(kube.NewScheme()).WithObjects(&svc).Build()
	net := newFakeNetwork(map[string]int{"10.43.0.2:8911": 200})
	p := NewProber(kube.StaticFactory{"c-1": kube.NewClusterClient(reader)}, net.checker(), DefaultOptions())

	found, err := p.Discover(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "proxy", found[0].Name)
}

func TestOptions_Defaults(t *testing.T) {
	p := NewProber(kube.StaticFactory{}, nil, Options{})
	opts := p.Options()
	assert.Equal(t, DefaultPort, opts.Port)
	assert.Equal(t, DefaultContainerName, opts.ContainerName)
	assert.Equal(t, DefaultMaxConcurrent, opts.MaxConcurrent)
	assert.Equal(t, 5*time.Second, opts.HealthTimeout)

	assert.True(t, opts.namespaceAllowed("anything"))
	opts.AllowedNamespaces = []string{"a"}
	assert.True(t, opts.namespaceAllowed("a"))
	assert.False(t, opts.namespaceAllowed("b"))
}
