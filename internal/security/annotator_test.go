package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(findings []Finding) []string {
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	return ids
}

func TestAnnotator_Annotate(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   []string
	}{
		{
			name: "cluster ip service in default namespace",
			target: Target{
				Name: "proxy", Namespace: "suse-ai-up", Source: "service",
				URL: "https://10.43.0.10:8911",
			},
			want: nil,
		},
		{
			name: "plaintext load balancer",
			target: Target{
				Name: "proxy", Namespace: "suse-ai-up", Source: "service",
				URL: "http://203.0.113.5:8911", LoadBalancerIPs: []string{"203.0.113.5"},
			},
			want: []string{RulePlaintextHTTP, RulePublicExposure},
		},
		{
			name: "pod host ip outside default namespace",
			target: Target{
				Name: "proxy-0", Namespace: "tools", Source: "pod",
				URL: "http://192.168.1.20:8911", HostIP: true, ExternalIPs: []string{"192.168.1.20"},
			},
			want: []string{RulePlaintextHTTP, RuleHostNetwork, RuleNonDefaultNS},
		},
		{
			name: "annotation and open mcp",
			target: Target{
				Name: "proxy", Namespace: "suse-ai-up", Source: "service",
				URL: "http://198.51.100.1:8911", PublicEndpoint: true, MCPProbed: true, MCPOpen: true,
			},
			want: []string{RulePlaintextHTTP, RulePublicExposure, RuleUnauthenticated},
		},
		{
			name: "probe not run",
			target: Target{
				Name: "proxy", Namespace: "suse-ai-up", Source: "service",
				URL: "https://10.43.0.10:8911", MCPOpen: true,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnnotator(nil)
			assert.Equal(t, tt.want, ruleIDs(a.Annotate(tt.target)))
		})
	}
}

func TestAnnotator_FindingFields(t *testing.T) {
	a := NewAnnotator(nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	findings := a.Annotate(Target{
		ClusterID: "c-m-1", Name: "proxy", Namespace: "suse-ai-up", Source: "service",
		URL: "http://10.0.0.1:8911", MCPProbed: true, MCPOpen: true,
	})
	require.Len(t, findings, 2)

	f := findings[1]
	assert.Equal(t, RuleUnauthenticated, f.RuleID)
	assert.Equal(t, SeverityCritical, f.Severity)
	assert.Equal(t, FindingOpen, f.Status)
	assert.Equal(t, fixed, f.DiscoveredAt)
	assert.Equal(t, "c-m-1", f.ClusterID)
	assert.Equal(t, "proxy", f.ResourceName)
	assert.NotEmpty(t, f.References)
	assert.Len(t, f.ID, 36)
	assert.NotEqual(t, findings[0].ID, f.ID)
}

func TestAnnotator_DisabledRules(t *testing.T) {
	a := NewAnnotator([]string{RulePlaintextHTTP, "NOPE-1"})

	for _, r := range a.Rules() {
		assert.Equal(t, r.ID != RulePlaintextHTTP, r.Enabled, r.ID)
	}

	findings := a.Annotate(Target{Name: "p", Namespace: "suse-ai-up", URL: "http://10.0.0.1:8911"})
	assert.Empty(t, findings)
}

func TestSummarizeAndScore(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityMedium},
		{Severity: SeverityMedium},
		{Severity: SeverityInfo},
	}
	assert.Equal(t, Summary{Total: 4, Critical: 1, Medium: 2, Info: 1}, Summarize(findings))
	assert.Equal(t, "high", VulnerabilityScore(findings))
	assert.Equal(t, "1 Critical", StatusLabel(findings))

	assert.Equal(t, "medium", VulnerabilityScore(findings[1:]))
	assert.Equal(t, "2 Warnings", StatusLabel(findings[1:]))

	assert.Equal(t, "low", VulnerabilityScore(findings[3:]))
	assert.Equal(t, "Secure", StatusLabel(findings[3:]))
	assert.Equal(t, "1 Info", StatusLabel([]Finding{{Severity: SeverityLow}}))

	assert.Equal(t, "low", VulnerabilityScore(nil))
	assert.Equal(t, Summary{}, Summarize(nil))
}
