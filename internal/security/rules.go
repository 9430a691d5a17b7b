package security

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultNamespace is where the proxy chart installs.
const DefaultNamespace = "suse-ai-up"

// Rule IDs of the built-in rules.
const (
	RulePlaintextHTTP    = "UP-NET-001"
	RulePublicExposure   = "UP-EXP-001"
	RuleHostNetwork      = "UP-EXP-002"
	RuleUnauthenticated  = "MCP-AUTH-001"
	RuleNonDefaultNS     = "UP-CFG-001"
	mcpSecurityReference = "https://modelcontextprotocol.io/specification/draft/basic/security_best_practices"
)

// Rule is a check applied to every discovered endpoint.
type Rule struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Enabled        bool     `json:"enabled"`
	Recommendation string   `json:"recommendation,omitempty"`
	References     []string `json:"references,omitempty"`

	// match returns evidence when the rule applies to the target.
	match func(Target) (string, bool)
}

// BuiltinRules returns a fresh copy of the built-in rule set, all enabled.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:             RulePlaintextHTTP,
			Name:           "Plaintext HTTP endpoint",
			Description:    "The proxy is reached over unencrypted HTTP.",
			Category:       "TRANSPORT",
			Severity:       SeverityMedium,
			Recommendation: "Expose the proxy through an ingress or load balancer that terminates TLS.",
			match: func(t Target) (string, bool) {
				u, err := url.Parse(t.URL)
				if err != nil || !strings.EqualFold(u.Scheme, "http") {
					return "", false
				}
				return fmt.Sprintf("endpoint URL is %s", t.URL), true
			},
		},
		{
			ID:             RulePublicExposure,
			Name:           "Publicly exposed endpoint",
			Description:    "The proxy is reachable through a public address.",
			Category:       "EXPOSURE",
			Severity:       SeverityHigh,
			Recommendation: "Restrict access with network policies or an authenticating ingress, or use a ClusterIP service.",
			match: func(t Target) (string, bool) {
				var evidence []string
				if t.PublicEndpoint {
					evidence = append(evidence, "Rancher publicEndpoints annotation")
				}
				if len(t.LoadBalancerIPs) > 0 {
					evidence = append(evidence, "load balancer "+strings.Join(t.LoadBalancerIPs, ","))
				}
				if t.Source == "service" && len(t.ExternalIPs) > 0 {
					evidence = append(evidence, "external IPs "+strings.Join(t.ExternalIPs, ","))
				}
				if len(evidence) == 0 {
					return "", false
				}
				return "exposed via " + strings.Join(evidence, "; "), true
			},
		},
		{
			ID:             RuleHostNetwork,
			Name:           "Host network exposure",
			Description:    "The proxy pod was only reachable through its node address.",
			Category:       "EXPOSURE",
			Severity:       SeverityMedium,
			Recommendation: "Avoid hostPort and hostNetwork for the proxy; expose it through a Service instead.",
			match: func(t Target) (string, bool) {
				if !t.HostIP {
					return "", false
				}
				return fmt.Sprintf("pod %s/%s answered on its host IP", t.Namespace, t.Name), true
			},
		},
		{
			ID:             RuleUnauthenticated,
			Name:           "Missing authentication",
			Description:    "The MCP endpoint completed an initialize handshake without credentials.",
			Category:       "AUTHENTICATION",
			Severity:       SeverityCritical,
			Recommendation: "Enable authentication on the proxy. MCP servers that implement authorization must verify all inbound requests and must not use sessions for authentication.",
			References:     []string{mcpSecurityReference},
			match: func(t Target) (string, bool) {
				if !t.MCPProbed || !t.MCPOpen {
					return "", false
				}
				return fmt.Sprintf("unauthenticated initialize succeeded against %s", t.URL), true
			},
		},
		{
			ID:             RuleNonDefaultNS,
			Name:           "Proxy outside its default namespace",
			Description:    "The proxy runs outside the namespace the chart installs into.",
			Category:       "CONFIGURATION",
			Severity:       SeverityInfo,
			Recommendation: "Check that this deployment is intended and managed.",
			match: func(t Target) (string, bool) {
				if t.Namespace == "" || t.Namespace == DefaultNamespace {
					return "", false
				}
				return fmt.Sprintf("namespace is %s", t.Namespace), true
			},
		},
	}
}
