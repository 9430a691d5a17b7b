package discovery

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/kube"
	"github.com/suse/upscout/pkg/logging"
)

// Prober runs the detection strategies against one cluster at a time.
type Prober struct {
	factory kube.Factory
	checker *health.Checker
	opts    Options
}

// NewProber creates a Prober. A nil checker gets one with the option's
// health timeout.
func NewProber(factory kube.Factory, checker *health.Checker, opts Options) *Prober {
	opts = opts.withDefaults()
	if checker == nil {
		checker = health.NewChecker(health.WithTimeout(opts.HealthTimeout))
	}
	return &Prober{factory: factory, checker: checker, opts: opts}
}

// Options returns the effective options.
func (p *Prober) Options() Options {
	return p.opts
}

// Discover runs the service strategy and falls back to pods when it finds
// nothing. Only endpoints that passed their health check are returned.
func (p *Prober) Discover(ctx context.Context, clusterID string) ([]DetectedService, error) {
	if clusterID == "" {
		return nil, fmt.Errorf("no cluster ID provided")
	}

	svc, err := p.FindService(ctx, clusterID)
	if err != nil {
		logging.Warn("Prober", "Service discovery in cluster %s failed, falling back to pods: %v", clusterID, err)
	}
	if svc != nil {
		return []DetectedService{*svc}, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	logging.Debug("Prober", "No healthy proxy service in cluster %s, trying pods", clusterID)
	return p.FindPods(ctx, clusterID)
}

// FindService lists the services exposing the proxy port and returns the
// first one whose health check passes, in list order. It returns nil when
// none is healthy.
func (p *Prober) FindService(ctx context.Context, clusterID string) (*DetectedService, error) {
	c, err := p.factory.ForCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	services, err := p.listServices(ctx, c)
	if err != nil {
		return nil, err
	}

	candidates := 0
	for i := range services {
		svc := &services[i]
		if !p.opts.namespaceAllowed(svc.Namespace) || !exposesPort(svc, p.opts.Port) {
			continue
		}
		candidates++

		addr, kind := ServiceCheckAddress(svc)
		if kind == AddressNone {
			logging.Warn("Prober", "Service %s/%s in cluster %s has no accessible IP", svc.Namespace, svc.Name, clusterID)
			continue
		}

		result := p.checker.CheckAddress(ctx, addr, p.opts.Port)
		if !result.Healthy {
			logging.Debug("Prober", "Service %s/%s (%s) failed health check: %s", svc.Namespace, svc.Name, addr, result.Error)
			continue
		}

		detected := detectedFromService(svc, addr, kind, p.opts.Port, result)
		detected.Hosts = ingressHosts(p.IngressesForService(ctx, clusterID, svc.Name, svc.Namespace))

		logging.Info("Prober", "Found healthy proxy service %s/%s at %s in cluster %s", svc.Namespace, svc.Name, addr, clusterID)
		return &detected, nil
	}

	logging.Debug("Prober", "Checked %d proxy service candidates in cluster %s, none healthy", candidates, clusterID)
	return nil, nil
}

// FindPods lists the proxy pods and health-checks all of them with bounded
// concurrency. Every healthy pod is returned, in list order.
func (p *Prober) FindPods(ctx context.Context, clusterID string) ([]DetectedService, error) {
	c, err := p.factory.ForCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	pods, err := p.listPods(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("unable to query cluster pods: %w", err)
	}

	var candidates []*corev1.Pod
	for i := range pods {
		pod := &pods[i]
		if p.opts.namespaceAllowed(pod.Namespace) && hasProxyContainer(pod, p.opts.ContainerName, p.opts.Port) {
			candidates = append(candidates, pod)
		}
	}
	logging.Info("Prober", "Found %d proxy pods in cluster %s", len(candidates), clusterID)

	found := make([]*DetectedService, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrent)
	for i, pod := range candidates {
		g.Go(func() error {
			detected, ok := p.checkPod(gctx, clusterID, pod)
			if ok {
				found[i] = &detected
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]DetectedService, 0, len(candidates))
	for _, d := range found {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, ctx.Err()
}

func (p *Prober) checkPod(ctx context.Context, clusterID string, pod *corev1.Pod) (DetectedService, bool) {
	var (
		url  string
		addr string
		kind AddressKind
	)
	if len(p.opts.ServiceURLs) > 0 {
		url = p.opts.ServiceURLs[0]
	} else {
		addr, kind = PodAddress(pod)
		if kind == AddressNone {
			logging.Warn("Prober", "Pod %s/%s in cluster %s has no address", pod.Namespace, pod.Name, clusterID)
			return DetectedService{}, false
		}
		url = health.BaseURL(addr, p.opts.Port)
	}

	result := p.checker.Check(ctx, url)
	if !result.Healthy {
		logging.Debug("Prober", "Pod %s/%s (%s) failed health check: %s", pod.Namespace, pod.Name, url, result.Error)
		return DetectedService{}, false
	}

	detected := DetectedService{
		Name:           pod.Name,
		Namespace:      pod.Namespace,
		Port:           p.opts.Port,
		Type:           "Pod",
		ClusterIP:      pod.Status.PodIP,
		URL:            url,
		PrimaryIP:      addr,
		Source:         SourcePod,
		PublicEndpoint: kind == AddressAnnotation,
		HostIP:         kind == AddressHostIP,
		Health:         &result,
	}
	if pod.Status.HostIP != "" {
		detected.ExternalIPs = []string{pod.Status.HostIP}
	}
	return detected, true
}

// IngressesForService returns the ingresses in namespace with a path backend
// pointing at the service. Errors are logged and yield an empty list.
func (p *Prober) IngressesForService(ctx context.Context, clusterID, name, namespace string) []networkingv1.Ingress {
	c, err := p.factory.ForCluster(ctx, clusterID)
	if err != nil {
		logging.Warn("Prober", "Failed to query ingresses in cluster %s: %v", clusterID, err)
		return nil
	}
	ingresses, err := c.ListIngresses(ctx, namespace)
	if err != nil {
		logging.Warn("Prober", "Failed to query ingresses in cluster %s: %v", clusterID, err)
		return nil
	}

	var out []networkingv1.Ingress
	for _, ing := range ingresses {
		if ing.Namespace == namespace && routesTo(&ing, name) {
			out = append(out, ing)
		}
	}
	logging.Debug("Prober", "Found %d ingresses pointing to service %s/%s", len(out), namespace, name)
	return out
}

func (p *Prober) listServices(ctx context.Context, c kube.ClusterClient) ([]corev1.Service, error) {
	if len(p.opts.AllowedNamespaces) == 0 {
		return c.ListServices(ctx, "")
	}
	var all []corev1.Service
	for _, ns := range p.opts.AllowedNamespaces {
		items, err := c.ListServices(ctx, ns)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func (p *Prober) listPods(ctx context.Context, c kube.ClusterClient) ([]corev1.Pod, error) {
	if len(p.opts.AllowedNamespaces) == 0 {
		return c.ListPods(ctx, "")
	}
	var all []corev1.Pod
	for _, ns := range p.opts.AllowedNamespaces {
		items, err := c.ListPods(ctx, ns)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func exposesPort(svc *corev1.Service, port int) bool {
	for _, sp := range svc.Spec.Ports {
		if int(sp.Port) == port {
			return true
		}
		if sp.TargetPort.IntValue() == port {
			return true
		}
	}
	return false
}

func hasProxyContainer(pod *corev1.Pod, containerName string, port int) bool {
	for _, c := range pod.Spec.Containers {
		if c.Name != containerName {
			continue
		}
		for _, cp := range c.Ports {
			if int(cp.ContainerPort) == port {
				return true
			}
		}
	}
	return false
}

func detectedFromService(svc *corev1.Service, addr string, kind AddressKind, port int, result health.Result) DetectedService {
	return DetectedService{
		Name:            svc.Name,
		Namespace:       svc.Namespace,
		Port:            port,
		Type:            string(svc.Spec.Type),
		ClusterIP:       svc.Spec.ClusterIP,
		ExternalIPs:     append([]string(nil), svc.Spec.ExternalIPs...),
		LoadBalancerIPs: loadBalancerAddresses(svc),
		URL:             health.BaseURL(addr, port),
		PrimaryIP:       addr,
		Source:          SourceService,
		PublicEndpoint:  kind == AddressAnnotation,
		Health:          &result,
	}
}

func routesTo(ing *networkingv1.Ingress, service string) bool {
	if b := ing.Spec.DefaultBackend; b != nil && b.Service != nil && b.Service.Name == service {
		return true
	}
	for _, rule := range ing.Spec.Rules {
		if rule.HTTP == nil {
			continue
		}
		for _, path := range rule.HTTP.Paths {
			if path.Backend.Service != nil && path.Backend.Service.Name == service {
				return true
			}
		}
	}
	return false
}

func ingressHosts(ingresses []networkingv1.Ingress) []string {
	seen := make(map[string]struct{})
	for _, ing := range ingresses {
		for _, rule := range ing.Spec.Rules {
			if rule.Host != "" {
				seen[rule.Host] = struct{}{}
			}
		}
		for _, tls := range ing.Spec.TLS {
			for _, h := range tls.Hosts {
				seen[h] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	hosts := make([]string, 0, len(seen))
	for h := range seen {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
