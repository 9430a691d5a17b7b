package discovery

import (
	"encoding/json"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
)

// PublicEndpoint is one entry of the field.cattle.io/publicEndpoints
// annotation.
type PublicEndpoint struct {
	Addresses   []string `json:"addresses,omitempty"`
	Address     string   `json:"address,omitempty"`
	Port        int      `json:"port,omitempty"`
	Protocol    string   `json:"protocol,omitempty"`
	ServiceName string   `json:"serviceName,omitempty"`
	AllNodes    bool     `json:"allNodes,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	IngressName string   `json:"ingressName,omitempty"`
}

// FirstAddress returns addresses[0], else address.
func (e PublicEndpoint) FirstAddress() string {
	for _, a := range e.Addresses {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
	}
	return strings.TrimSpace(e.Address)
}

// ParsePublicEndpoints decodes the publicEndpoints annotation value, a JSON
// array of endpoints. An empty value yields no endpoints.
func ParsePublicEndpoints(annotation string) ([]PublicEndpoint, error) {
	if strings.TrimSpace(annotation) == "" {
		return nil, nil
	}
	var endpoints []PublicEndpoint
	if err := json.Unmarshal([]byte(annotation), &endpoints); err != nil {
		return nil, fmt.Errorf("invalid %s annotation: %w", PublicEndpointsAnnotation, err)
	}
	return endpoints, nil
}

// annotationAddress returns the first public endpoint address from the
// annotations, or "" when missing or malformed.
func annotationAddress(annotations map[string]string) string {
	raw, ok := annotations[PublicEndpointsAnnotation]
	if !ok {
		return ""
	}
	endpoints, err := ParsePublicEndpoints(raw)
	if err != nil || len(endpoints) == 0 {
		return ""
	}
	return endpoints[0].FirstAddress()
}

// usableIP reports whether ip can be dialed. Headless services carry "None".
func usableIP(ip string) bool {
	return ip != "" && ip != corev1.ClusterIPNone
}

// loadBalancerAddresses returns the ingress addresses of a LoadBalancer
// service, the IP where set and the hostname otherwise. Used to report
// exposure, not to pick the check address.
func loadBalancerAddresses(svc *corev1.Service) []string {
	var out []string
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		switch {
		case ing.IP != "":
			out = append(out, ing.IP)
		case ing.Hostname != "":
			out = append(out, ing.Hostname)
		}
	}
	return out
}

func loadBalancerIP(svc *corev1.Service) string {
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return ing.IP
		}
	}
	return ""
}

func loadBalancerHostname(svc *corev1.Service) string {
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.Hostname != "" {
			return ing.Hostname
		}
	}
	return ""
}

// AddressKind tells where a resolved address came from.
type AddressKind string

const (
	AddressNone         AddressKind = ""
	AddressLoadBalancer AddressKind = "loadBalancer"
	AddressLBHostname   AddressKind = "loadBalancerHostname"
	AddressAnnotation   AddressKind = "annotation"
	AddressExternalIP   AddressKind = "externalIP"
	AddressClusterIP    AddressKind = "clusterIP"
	AddressPodIP        AddressKind = "podIP"
	AddressHostIP       AddressKind = "hostIP"
)

// ServiceCheckAddress resolves the address used to health-check a service:
// load balancer ingress IP, then the publicEndpoints annotation, then
// externalIPs[0], then the cluster IP. A load balancer hostname is only used
// when none of those exist, e.g. for a headless service behind an ELB.
func ServiceCheckAddress(svc *corev1.Service) (string, AddressKind) {
	if ip := loadBalancerIP(svc); ip != "" {
		return ip, AddressLoadBalancer
	}
	if addr := annotationAddress(svc.Annotations); addr != "" {
		return addr, AddressAnnotation
	}
	if len(svc.Spec.ExternalIPs) > 0 && svc.Spec.ExternalIPs[0] != "" {
		return svc.Spec.ExternalIPs[0], AddressExternalIP
	}
	if usableIP(svc.Spec.ClusterIP) {
		return svc.Spec.ClusterIP, AddressClusterIP
	}
	if host := loadBalancerHostname(svc); host != "" {
		return host, AddressLBHostname
	}
	return "", AddressNone
}

// PodAddress resolves the address used to health-check a pod: the
// publicEndpoints annotation, then the pod IP, then the host IP.
func PodAddress(pod *corev1.Pod) (string, AddressKind) {
	if addr := annotationAddress(pod.Annotations); addr != "" {
		return addr, AddressAnnotation
	}
	if pod.Status.PodIP != "" {
		return pod.Status.PodIP, AddressPodIP
	}
	if pod.Status.HostIP != "" {
		return pod.Status.HostIP, AddressHostIP
	}
	return "", AddressNone
}
