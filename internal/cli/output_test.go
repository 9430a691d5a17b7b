package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/mcpprobe"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/internal/security"
)

func testInstances() []discovery.ServiceInstance {
	return []discovery.ServiceInstance{
		{
			DetectedService: discovery.DetectedService{
				Name: "proxy", Namespace: "suse-ai-up", Type: "ClusterIP", Source: discovery.SourceService,
				URL: "http://10.43.0.1:8911", Hosts: []string{"up.example.com"},
				Health: &health.Result{Version: "1.4.0"},
			},
			ClusterID: "c-m-1", ClusterName: "prod", Status: discovery.StatusAvailable,
			Primary:      true,
			ResponseTime: 12 * time.Millisecond,
			MCP:          &mcpprobe.Info{ToolCount: 4},
			Findings:     []security.Finding{{Severity: security.SeverityCritical}},
		},
		{
			DetectedService: discovery.DetectedService{
				Name: "proxy-0", Namespace: "tools", Source: discovery.SourcePod, URL: "http://10.42.0.3:8911",
			},
			ClusterID: "c-m-2", ClusterName: "edge", Status: discovery.StatusAvailable,
		},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range ValidOutputFormats {
		assert.NoError(t, ValidateOutputFormat(string(f)))
	}
	err := ValidateOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestPrinter_Table(t *testing.T) {
	SetColor(false)
	var buf bytes.Buffer
	p := &Printer{Format: OutputFormatTable, Out: &buf}

	require.NoError(t, p.Print(testInstances(), InstanceView(testInstances())))
	lines := splitLines(buf.String())
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "CLUSTER"))
	assert.Contains(t, lines[1], "http://10.43.0.1:8911")
	assert.Contains(t, lines[1], "1 Critical")
	assert.Contains(t, lines[2], "Secure")
	assert.NotContains(t, lines[0], "LATENCY")
	assert.False(t, p.Structured())
}

func TestPrinter_Wide(t *testing.T) {
	SetColor(false)
	var buf bytes.Buffer
	p := &Printer{Format: OutputFormatWide, Out: &buf, NoHeaders: true}

	require.NoError(t, p.Print(nil, InstanceView(testInstances())))
	lines := splitLines(buf.String())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "12ms")
	assert.Contains(t, lines[0], "1.4.0")
	assert.Contains(t, lines[0], "up.example.com")
	assert.Contains(t, lines[0], "open (4 tools)")
	assert.Contains(t, lines[0], "yes")
	assert.NotContains(t, lines[1], "yes")
}

func TestViews_ClusterDisplayName(t *testing.T) {
	SetColor(false)

	instances := testInstances()
	instances[0].ClusterName = "c-m-1"
	instances[0].DisplayName = "Production"
	iv := InstanceView(instances)
	assert.Equal(t, "Production", iv.Rows(false)[0][0])
	assert.Equal(t, "Production", iv.Rows(true)[0][0])
	assert.Equal(t, "edge", iv.Rows(false)[1][0])

	results := ScanResultView{
		{ClusterName: "c-m-1", DisplayName: "Production", ClusterID: "c-m-1", Status: discovery.ScanCompleted},
		{ClusterName: "ghost", Status: discovery.ScanFailed, Error: "cluster not found"},
	}
	assert.Equal(t, "Production", results.Rows(false)[0][0])
	assert.Equal(t, "Production", results.Rows(true)[0][0])
	assert.Equal(t, "ghost", results.Rows(false)[1][0])
}

func TestPrinter_JSONAndYAML(t *testing.T) {
	data := map[string]interface{}{"instances": testInstances()[:1]}

	var buf bytes.Buffer
	p := &Printer{Format: OutputFormatJSON, Out: &buf}
	require.NoError(t, p.Print(data, nil))
	assert.Contains(t, buf.String(), `"clusterId": "c-m-1"`)
	assert.Contains(t, buf.String(), `"url": "http://10.43.0.1:8911"`)
	assert.True(t, p.Structured())

	buf.Reset()
	p.Format = OutputFormatYAML
	require.NoError(t, p.Print(data, nil))
	assert.Contains(t, buf.String(), "clusterId: c-m-1")
	assert.Contains(t, buf.String(), "namespace: suse-ai-up")
}

func TestPrinter_Template(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{
		Format:   OutputFormatTemplate,
		Template: `{{ range .instances }}{{ .clusterName | upper }} {{ .url }}{{ "\n" }}{{ end }}`,
		Out:      &buf,
	}
	require.NoError(t, p.Print(map[string]interface{}{"instances": testInstances()}, nil))
	assert.Equal(t, "PROD http://10.43.0.1:8911\nEDGE http://10.42.0.3:8911\n", buf.String())

	p.Template = ""
	err := p.Print(nil, nil)
	assert.Equal(t, ExitCodeConfig, ExitCodeFor(err))

	p.Template = "{{ .broken"
	err = p.Print(nil, nil)
	assert.Equal(t, ExitCodeConfig, ExitCodeFor(err))
}

func TestPrinter_NoView(t *testing.T) {
	p := &Printer{Format: OutputFormatTable, Out: &bytes.Buffer{}}
	assert.Error(t, p.Print(nil, nil))
}

func TestViews(t *testing.T) {
	SetColor(false)

	clusters := ClusterView{{
		ID: "c-m-1", Name: "prod", State: "updating", Transitioning: "yes", Provider: "rke2",
		APIEndpoint: "https://10.0.0.1:6443",
	}}
	assert.Equal(t, [][]string{{"c-m-1", "prod", "updating (yes)", "-"}}, clusters.Rows(false))
	assert.Len(t, clusters.Rows(true)[0], len(clusters.Headers(true)))
	assert.Equal(t, "10.0.0.1", clusters.Rows(true)[0][5])

	results := ScanResultView{
		{ClusterName: "prod", ClusterID: "c-m-1", Status: discovery.ScanCompleted, Instances: testInstances()[:1], ScanDuration: 1500 * time.Millisecond},
		{ClusterName: "edge", ClusterID: "edge", Status: discovery.ScanFailed, Error: "cluster not found"},
	}
	assert.Equal(t, []string{"prod", "completed", "1", "-"}, results.Rows(false)[0])
	assert.Equal(t, []string{"edge", "edge", "failed", "0", "-", "cluster not found"}, results.Rows(true)[1])
	assert.Equal(t, "1.5s", results.Rows(true)[0][4])

	checks := HealthView{{URL: "http://a:8911", Healthy: false, StatusCode: 503, Error: "unexpected status 503"}}
	assert.Equal(t, []string{"http://a:8911", "false", "-", "unexpected status 503"}, checks.Rows(false)[0])
	assert.Equal(t, "503", checks.Rows(true)[0][2])

	monitor := MonitorView{{Name: "proxy", URL: "http://a:8911", Status: health.StatusUnhealthy, ConsecutiveFailures: 2,
		LastResult: &health.Result{Error: "timeout"}}}
	assert.Equal(t, []string{"proxy", "http://a:8911", "unhealthy", "2", "-", "timeout"}, monitor.Rows(true)[0])

	findings := FindingView{{ClusterID: "c-m-1", Namespace: "suse-ai-up", ResourceName: "proxy", RuleID: "UP-NET-001", Severity: security.SeverityMedium, Title: "Plaintext HTTP endpoint"}}
	assert.Equal(t, []string{"suse-ai-up/proxy", "UP-NET-001", "medium", "Plaintext HTTP endpoint"}, findings.Rows(false)[0])
	assert.Len(t, findings.Rows(true)[0], len(findings.Headers(true)))
}

func TestFormatHelpers(t *testing.T) {
	SetColor(false)

	assert.Equal(t, "-", FormatDuration(0))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "1.5m", FormatDuration(90*time.Second))
	assert.Equal(t, "2.0h", FormatDuration(2*time.Hour))

	assert.Equal(t, "-", FormatTimestamp(time.Time{}))
	assert.Equal(t, "2026-03-01 12:30:00", FormatTimestamp(time.Date(2026, 3, 1, 13, 30, 0, 0, time.FixedZone("CET", 3600))))

	assert.Equal(t, "-", FormatList(nil))
	assert.Equal(t, "a,b", FormatList([]string{"a", "b"}))
	assert.Equal(t, "-", FormatStatus(""))
	assert.Equal(t, "available", FormatStatus("available"))

	SetColor(true)
	defer SetColor(false)
	assert.NotEqual(t, "available", FormatStatus("available"))
	assert.Equal(t, "custom", FormatStatus("custom"))
}

func TestProgressMessage(t *testing.T) {
	assert.Equal(t, "Scanning prod (0/3, 0 instances found)",
		ProgressMessage(discovery.Progress{TotalClusters: 3, RemainingClusters: 3, CurrentCluster: "prod"}))
	assert.Equal(t, "Scanning edge (1/3, 1 instance found, ~12s left)",
		ProgressMessage(discovery.Progress{TotalClusters: 3, ScannedClusters: 1, RemainingClusters: 2, FoundInstances: 1, CurrentCluster: "edge", EstimatedTimeRemaining: 12 * time.Second}))
	assert.Equal(t, "Scan finished (3/3, 2 instances found)",
		ProgressMessage(discovery.Progress{TotalClusters: 3, ScannedClusters: 3, FoundInstances: 2}))
}

func TestScanProgress_Quiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewScanProgress(&buf, true)
	p.Start("Scanning")
	p.Update(discovery.Progress{TotalClusters: 1})
	p.Stop("done")
	assert.Empty(t, buf.String())
}

func TestCommandFlags_NewPrinter(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var flags CommandFlags
	RegisterCommonFlags(cmd, &flags)
	require.NoError(t, cmd.ParseFlags([]string{"-o", "wide", "--no-headers", "--no-color"}))

	p, err := flags.NewPrinter(&bytes.Buffer{}, "json", "")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatWide, p.Format)
	assert.True(t, p.NoHeaders)

	flags.OutputFormat = ""
	p, err = flags.NewPrinter(&bytes.Buffer{}, "template", "{{ . }}")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatTemplate, p.Format)
	assert.Equal(t, "{{ . }}", p.Template)

	p, err = flags.NewPrinter(&bytes.Buffer{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatTable, p.Format)

	flags.OutputFormat = "xml"
	_, err = flags.NewPrinter(&bytes.Buffer{}, "", "")
	assert.Equal(t, ExitCodeConfig, ExitCodeFor(err))
}

func TestClusterViewHeadersMatchRows(t *testing.T) {
	v := ClusterView{rancher.Cluster{ID: "local", Name: "local", State: "active"}}
	for _, wide := range []bool{false, true} {
		assert.Len(t, v.Rows(wide)[0], len(v.Headers(wide)))
	}
	iv := InstanceView(testInstances())
	for _, wide := range []bool{false, true} {
		assert.Len(t, iv.Rows(wide)[0], len(iv.Headers(wide)))
	}
}

func TestViews_LongErrorsTruncated(t *testing.T) {
	SetColor(false)
	long := "dial tcp 10.43.0.1:8911: connect: connection refused\nwhile checking http://10.43.0.1:8911/health after 3 attempts"
	v := ScanResultView{{ClusterName: "prod", Status: discovery.ScanFailed, Error: long}}

	short := v.Rows(false)[0][3]
	assert.Len(t, []rune(short), 60)
	assert.True(t, strings.HasSuffix(short, "..."))
	assert.NotContains(t, short, "\n")

	wide := v.Rows(true)[0][5]
	assert.NotContains(t, wide, "\n")
	assert.Contains(t, wide, "after 3 attempts")
}
