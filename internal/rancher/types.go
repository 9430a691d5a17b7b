package rancher

import (
	"net/url"
	"strings"
)

// Cluster is the subset of a Rancher management cluster (/v3/clusters) that
// discovery needs.
type Cluster struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DisplayName   string `json:"nameDisplay,omitempty"`
	State         string `json:"state"`
	Transitioning string `json:"transitioning,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Ready         bool   `json:"ready,omitempty"`
	Version       *struct {
		GitVersion string `json:"gitVersion"`
	} `json:"version,omitempty"`
	APIEndpoint string      `json:"apiEndpoint,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`

	Status *ClusterStatus `json:"status,omitempty"`

	RKEConfig *struct {
		LoadBalancerConfig *struct {
			PublicAddress string `json:"publicAddress,omitempty"`
		} `json:"loadBalancerConfig,omitempty"`
	} `json:"rancherKubernetesEngineConfig,omitempty"`
}

// ClusterStatus holds the nested status some Rancher versions return.
type ClusterStatus struct {
	APIEndpoint string      `json:"apiEndpoint,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
}

// Condition is a Rancher cluster condition.
type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StateActive is the state of a connected, usable cluster.
const StateActive = "active"

// DisplayNameOrName returns the best human readable name of the cluster.
func (c Cluster) DisplayNameOrName() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// KubernetesVersion returns the reported git version, if any.
func (c Cluster) KubernetesVersion() string {
	if c.Version == nil {
		return ""
	}
	return c.Version.GitVersion
}

// LoadBalancerPublicAddress returns the RKE load balancer public address.
func (c Cluster) LoadBalancerPublicAddress() string {
	if c.RKEConfig == nil || c.RKEConfig.LoadBalancerConfig == nil {
		return ""
	}
	return c.RKEConfig.LoadBalancerConfig.PublicAddress
}

// IsAccessible reports whether the cluster is active or has a Ready
// condition with status True.
func (c Cluster) IsAccessible() bool {
	if c.State == StateActive {
		return true
	}
	for _, cond := range c.allConditions() {
		if cond.Type == "Ready" && cond.Status == "True" {
			return true
		}
	}
	return false
}

func (c Cluster) allConditions() []Condition {
	if c.Status == nil {
		return c.Conditions
	}
	return append(append([]Condition{}, c.Conditions...), c.Status.Conditions...)
}

// PublicIP returns the address discovery should use to reach services of
// the cluster from outside: the load balancer public address, else the
// host of the API endpoint, else "".
func (c Cluster) PublicIP() string {
	if addr := c.LoadBalancerPublicAddress(); addr != "" {
		return addr
	}
	if host := hostOf(c.APIEndpoint); host != "" {
		return host
	}
	if c.Status != nil {
		return hostOf(c.Status.APIEndpoint)
	}
	return ""
}

func hostOf(endpoint string) string {
	if strings.TrimSpace(endpoint) == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// clusterCollection is the envelope of /v3 collection responses.
type clusterCollection struct {
	Data []Cluster `json:"data"`
}
