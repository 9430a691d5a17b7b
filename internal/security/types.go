package security

import (
	"strconv"
	"time"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// FindingStatus is the lifecycle state of a finding.
type FindingStatus string

const (
	FindingOpen     FindingStatus = "open"
	FindingResolved FindingStatus = "resolved"
	FindingIgnored  FindingStatus = "ignored"
)

// Finding is one security observation about a discovered endpoint.
type Finding struct {
	ID             string        `json:"id"`
	RuleID         string        `json:"ruleId"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Severity       Severity      `json:"severity"`
	Category       string        `json:"category"`
	Evidence       string        `json:"evidence,omitempty"`
	Status         FindingStatus `json:"status"`
	DiscoveredAt   time.Time     `json:"discoveredAt"`
	Recommendation string        `json:"recommendation,omitempty"`
	References     []string      `json:"references,omitempty"`
	ClusterID      string        `json:"clusterId,omitempty"`
	ResourceName   string        `json:"resourceName,omitempty"`
	Namespace      string        `json:"namespace,omitempty"`
}

// Target is what the rules look at. The discovery package builds it from a
// service instance.
type Target struct {
	ClusterID string
	Name      string
	Namespace string
	URL       string
	// Source is "service" or "pod".
	Source          string
	Type            string
	LoadBalancerIPs []string
	ExternalIPs     []string
	// PublicEndpoint is set when the address came from Rancher's
	// publicEndpoints annotation.
	PublicEndpoint bool
	// HostIP is set when a pod was reached through its node address.
	HostIP bool
	// MCPProbed is set when an MCP handshake was attempted.
	MCPProbed bool
	// MCPOpen is set when the handshake succeeded without credentials.
	MCPOpen bool
}

// Summary counts findings by severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		default:
			s.Info++
		}
	}
	return s
}

// VulnerabilityScore condenses findings into high, medium or low.
func VulnerabilityScore(findings []Finding) string {
	s := Summarize(findings)
	switch {
	case s.Critical > 0 || s.High > 0:
		return "high"
	case s.Medium > 0:
		return "medium"
	default:
		return "low"
	}
}

// StatusLabel is the short label shown next to an endpoint.
func StatusLabel(findings []Finding) string {
	s := Summarize(findings)
	switch {
	case s.Critical+s.High > 0:
		return pluralize(s.Critical+s.High, "Critical", "Critical")
	case s.Medium > 0:
		return pluralize(s.Medium, "Warning", "Warnings")
	case s.Low > 0:
		return pluralize(s.Low, "Info", "Info")
	default:
		return "Secure"
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
