package discovery

import (
	"time"

	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/mcpprobe"
	"github.com/suse/upscout/internal/security"
)

const (
	// DefaultPort is the Universal Proxy port.
	DefaultPort = 8911

	// DefaultContainerName is the name of the proxy container in its pods.
	DefaultContainerName = "suse-ai-up"

	// DefaultNamespace is the namespace the proxy chart installs into.
	DefaultNamespace = "suse-ai-up"

	// PublicEndpointsAnnotation is set by Rancher on exposed workloads.
	PublicEndpointsAnnotation = "field.cattle.io/publicEndpoints"

	// DefaultMaxConcurrent bounds concurrent pod health checks.
	DefaultMaxConcurrent = 3
)

// Source tells which detection strategy produced a DetectedService.
type Source string

const (
	SourceService Source = "service"
	SourcePod     Source = "pod"
)

// DetectedService is a Universal Proxy endpoint that passed its health check.
type DetectedService struct {
	Name            string   `json:"name"`
	Namespace       string   `json:"namespace"`
	Port            int      `json:"port"`
	Type            string   `json:"type"`
	ClusterIP       string   `json:"clusterIP,omitempty"`
	ExternalIPs     []string `json:"externalIPs,omitempty"`
	LoadBalancerIPs []string `json:"loadBalancerIPs,omitempty"`
	URL             string   `json:"url,omitempty"`
	PrimaryIP       string   `json:"primaryIP,omitempty"`
	Source          Source   `json:"source"`

	// PublicEndpoint is true when PrimaryIP came from the Rancher
	// publicEndpoints annotation.
	PublicEndpoint bool `json:"publicEndpoint,omitempty"`
	// HostIP is true when a pod was only reachable through its node address.
	HostIP bool `json:"hostIP,omitempty"`
	// Hosts are the ingress hosts routing to the service.
	Hosts []string `json:"hosts,omitempty"`

	Health *health.Result `json:"health,omitempty"`
}

// Label returns the display name of the cluster, or the requested name
// when the cluster was never resolved.
func (i ServiceInstance) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ClusterName
}

// InstanceStatus is the reachability of a ServiceInstance.
type InstanceStatus string

const (
	StatusAvailable   InstanceStatus = "available"
	StatusUnreachable InstanceStatus = "unreachable"
	StatusError       InstanceStatus = "error"
)

// ServiceInstance is a DetectedService attributed to a cluster.
type ServiceInstance struct {
	DetectedService

	ClusterID    string             `json:"clusterId"`
	ClusterName  string             `json:"clusterName"`
	DisplayName  string             `json:"displayName,omitempty"`
	Status       InstanceStatus     `json:"status"`
	LastChecked  time.Time          `json:"lastChecked"`
	ResponseTime time.Duration      `json:"responseTime,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	Findings     []security.Finding `json:"findings,omitempty"`
	MCP          *mcpprobe.Info     `json:"mcp,omitempty"`

	// Primary marks the instance to connect to within its cluster.
	Primary bool `json:"primary,omitempty"`
}

// ScanStatus is the state of one cluster within a scan.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanScanning  ScanStatus = "scanning"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// ClusterScanResult is the outcome of scanning one cluster.
type ClusterScanResult struct {
	ClusterID   string `json:"clusterId"`
	ClusterName string `json:"clusterName"`
	// DisplayName is the human name of the cluster once it was resolved.
	// ClusterName stays the name the scan was requested with.
	DisplayName  string            `json:"displayName,omitempty"`
	Instances    []ServiceInstance `json:"instances"`
	Error        string            `json:"error,omitempty"`
	ScanDuration time.Duration     `json:"scanDuration"`
	Status       ScanStatus        `json:"status"`
}

// Label returns the display name of the cluster, or the requested name
// when the cluster could not be resolved.
func (r ClusterScanResult) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.ClusterName
}

// Progress reports how far a multi-cluster scan has come.
type Progress struct {
	TotalClusters     int    `json:"totalClusters"`
	ScannedClusters   int    `json:"scannedClusters"`
	RemainingClusters int    `json:"remainingClusters"`
	FoundInstances    int    `json:"foundInstances"`
	CurrentCluster    string `json:"currentCluster,omitempty"`
	// EstimatedTimeRemaining is zero until the first cluster has finished.
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining,omitempty"`
}

// ProgressFunc receives progress updates during a scan.
type ProgressFunc func(Progress)

// Options tunes the detection strategies.
type Options struct {
	Port              int
	ContainerName     string
	AllowedNamespaces []string
	HealthTimeout     time.Duration
	MaxConcurrent     int
	// ServiceURLs pins the URL used for every pod. Only the first entry is used.
	ServiceURLs []string
}

// DefaultOptions returns the Universal Proxy conventions.
func DefaultOptions() Options {
	return Options{
		Port:          DefaultPort,
		ContainerName: DefaultContainerName,
		HealthTimeout: health.DefaultTimeout,
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Port == 0 {
		o.Port = def.Port
	}
	if o.ContainerName == "" {
		o.ContainerName = def.ContainerName
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = def.HealthTimeout
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = def.MaxConcurrent
	}
	return o
}

func (o Options) namespaceAllowed(ns string) bool {
	if len(o.AllowedNamespaces) == 0 {
		return true
	}
	for _, allowed := range o.AllowedNamespaces {
		if allowed == ns {
			return true
		}
	}
	return false
}
