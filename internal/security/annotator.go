package security

import (
	"time"

	"github.com/google/uuid"

	"github.com/suse/upscout/pkg/logging"
)

// Annotator applies the enabled rules to discovered endpoints.
type Annotator struct {
	rules []Rule
	now   func() time.Time
}

// NewAnnotator creates an annotator with the built-in rules. Rules listed in
// disabled are turned off; unknown IDs are logged and ignored.
func NewAnnotator(disabled []string) *Annotator {
	rules := BuiltinRules()
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	known := make(map[string]bool, len(rules))
	for i := range rules {
		known[rules[i].ID] = true
		rules[i].Enabled = !off[rules[i].ID]
	}
	for id := range off {
		if !known[id] {
			logging.Warn("Security", "Ignoring unknown rule %q in disabled rules", id)
		}
	}
	return &Annotator{rules: rules, now: time.Now}
}

// Rules returns the rule set with its enabled state.
func (a *Annotator) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

// Annotate returns the findings of all enabled rules for target, in rule
// order.
func (a *Annotator) Annotate(target Target) []Finding {
	var findings []Finding
	now := a.now()
	for _, rule := range a.rules {
		if !rule.Enabled || rule.match == nil {
			continue
		}
		evidence, ok := rule.match(target)
		if !ok {
			continue
		}
		findings = append(findings, Finding{
			ID:             uuid.NewString(),
			RuleID:         rule.ID,
			Title:          rule.Name,
			Description:    rule.Description,
			Severity:       rule.Severity,
			Category:       rule.Category,
			Evidence:       evidence,
			Status:         FindingOpen,
			DiscoveredAt:   now,
			Recommendation: rule.Recommendation,
			References:     rule.References,
			ClusterID:      target.ClusterID,
			ResourceName:   target.Name,
			Namespace:      target.Namespace,
		})
	}
	if len(findings) > 0 {
		logging.Debug("Security", "%d findings for %s/%s in cluster %s", len(findings), target.Namespace, target.Name, target.ClusterID)
	}
	return findings
}
