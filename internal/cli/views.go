package cli

import (
	"strconv"

	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/mcpprobe"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/internal/security"
	pkgstrings "github.com/suse/upscout/pkg/strings"
)

// ClusterView renders Rancher clusters.
type ClusterView []rancher.Cluster

func (v ClusterView) Headers(wide bool) []string {
	if wide {
		return []string{"ID", "Name", "State", "Provider", "Version", "Public IP", "API Endpoint"}
	}
	return []string{"ID", "Name", "State", "Version"}
}

func (v ClusterView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, c := range v {
		state := c.State
		if c.Transitioning != "" && c.Transitioning != "no" {
			state += " (" + c.Transitioning + ")"
		}
		row := []string{c.ID, c.DisplayNameOrName(), FormatStatus(state), orDash(c.KubernetesVersion())}
		if wide {
			row = []string{c.ID, c.DisplayNameOrName(), FormatStatus(state), orDash(c.Provider), orDash(c.KubernetesVersion()), orDash(c.PublicIP()), orDash(c.APIEndpoint)}
		}
		rows = append(rows, row)
	}
	return rows
}

// InstanceView renders discovered proxy instances.
type InstanceView []discovery.ServiceInstance

func (v InstanceView) Headers(wide bool) []string {
	if wide {
		return []string{"Cluster", "Namespace", "Name", "Source", "Type", "URL", "Status", "Primary", "Latency", "Version", "Hosts", "MCP", "Security"}
	}
	return []string{"Cluster", "Namespace", "Name", "Source", "URL", "Status", "Security"}
}

func (v InstanceView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, inst := range v {
		sec := FormatStatus(security.StatusLabel(inst.Findings))
		if !wide {
			rows = append(rows, []string{inst.Label(), inst.Namespace, inst.Name, string(inst.Source), inst.URL, FormatStatus(string(inst.Status)), sec})
			continue
		}
		version := "-"
		if inst.Health != nil && inst.Health.Version != "" {
			version = inst.Health.Version
		}
		primary := "-"
		if inst.Primary {
			primary = "yes"
		}
		rows = append(rows, []string{
			inst.Label(), inst.Namespace, inst.Name, string(inst.Source), orDash(inst.Type), inst.URL,
			FormatStatus(string(inst.Status)), primary, FormatDuration(inst.ResponseTime), version,
			pkgstrings.TruncateMiddle(FormatList(inst.Hosts), hostsMaxLen), mcpSummary(inst.MCP), sec,
		})
	}
	return rows
}

// hostsMaxLen bounds the ingress hosts column of wide instance output.
const hostsMaxLen = 40

// cell fits free text into a non-wide table cell.
func cell(s string) string {
	return pkgstrings.TruncateCell(s, pkgstrings.DefaultCellMaxLen)
}

func mcpSummary(info *mcpprobe.Info) string {
	switch {
	case info == nil:
		return "-"
	case info.AuthRequired:
		return "auth required"
	default:
		return "open (" + strconv.Itoa(info.ToolCount) + " tools)"
	}
}

// ScanResultView renders per-cluster scan results.
type ScanResultView []discovery.ClusterScanResult

func (v ScanResultView) Headers(wide bool) []string {
	if wide {
		return []string{"Cluster", "ID", "Status", "Instances", "Duration", "Error"}
	}
	return []string{"Cluster", "Status", "Instances", "Error"}
}

func (v ScanResultView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		count := strconv.Itoa(len(r.Instances))
		if wide {
			rows = append(rows, []string{r.Label(), r.ClusterID, FormatStatus(string(r.Status)), count, FormatDuration(r.ScanDuration), orDash(pkgstrings.SingleLine(r.Error))})
			continue
		}
		rows = append(rows, []string{r.Label(), FormatStatus(string(r.Status)), count, orDash(cell(r.Error))})
	}
	return rows
}

// HealthView renders one-shot health check results.
type HealthView []health.Result

func (v HealthView) Headers(wide bool) []string {
	if wide {
		return []string{"URL", "Healthy", "Code", "Latency", "Version", "Checked", "Error"}
	}
	return []string{"URL", "Healthy", "Latency", "Error"}
}

func (v HealthView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		healthy := FormatStatus(strconv.FormatBool(r.Healthy))
		if wide {
			code := "-"
			if r.StatusCode != 0 {
				code = strconv.Itoa(r.StatusCode)
			}
			rows = append(rows, []string{r.URL, healthy, code, FormatDuration(r.ResponseTime), orDash(r.Version), FormatTimestamp(r.CheckedAt), orDash(pkgstrings.SingleLine(r.Error))})
			continue
		}
		rows = append(rows, []string{r.URL, healthy, FormatDuration(r.ResponseTime), orDash(cell(r.Error))})
	}
	return rows
}

// MonitorView renders the monitor's per-endpoint state.
type MonitorView []health.ServiceHealth

func (v MonitorView) Headers(wide bool) []string {
	if wide {
		return []string{"Name", "URL", "Status", "Failures", "Last Checked", "Error"}
	}
	return []string{"Name", "URL", "Status", "Last Checked"}
}

func (v MonitorView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		if !wide {
			rows = append(rows, []string{s.Name, s.URL, FormatStatus(string(s.Status)), FormatTimestamp(s.LastChecked)})
			continue
		}
		errMsg := "-"
		if s.LastResult != nil && s.LastResult.Error != "" {
			errMsg = pkgstrings.SingleLine(s.LastResult.Error)
		}
		rows = append(rows, []string{s.Name, s.URL, FormatStatus(string(s.Status)), strconv.Itoa(s.ConsecutiveFailures), FormatTimestamp(s.LastChecked), errMsg})
	}
	return rows
}

// FindingView renders security findings.
type FindingView []security.Finding

func (v FindingView) Headers(wide bool) []string {
	if wide {
		return []string{"Cluster", "Resource", "Rule", "Severity", "Title", "Evidence", "Recommendation"}
	}
	return []string{"Resource", "Rule", "Severity", "Title"}
}

func (v FindingView) Rows(wide bool) [][]string {
	rows := make([][]string, 0, len(v))
	for _, f := range v {
		resource := f.Namespace + "/" + f.ResourceName
		if wide {
			rows = append(rows, []string{orDash(f.ClusterID), resource, f.RuleID, FormatStatus(string(f.Severity)), f.Title, orDash(f.Evidence), orDash(f.Recommendation)})
			continue
		}
		rows = append(rows, []string{resource, f.RuleID, FormatStatus(string(f.Severity)), cell(f.Title)})
	}
	return rows
}
