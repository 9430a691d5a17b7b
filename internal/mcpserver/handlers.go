package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/pkg/logging"
)

// clusterSummary is the list_clusters entry.
type clusterSummary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DisplayName       string `json:"displayName"`
	State             string `json:"state"`
	Provider          string `json:"provider,omitempty"`
	KubernetesVersion string `json:"kubernetesVersion,omitempty"`
	PublicIP          string `json:"publicIP,omitempty"`
}

// scanResponse is returned by the discovery tools.
type scanResponse struct {
	Results              []discovery.ClusterScanResult `json:"results"`
	Instances            []discovery.ServiceInstance   `json:"instances"`
	FailedClusters       []string                      `json:"failedClusters"`
	CompletionPercentage int                           `json:"completionPercentage"`
}

func (s *Server) handleListClusters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.clusters == nil {
		return mcp.NewToolResultError("cluster source is not configured"), nil
	}
	clusters, err := s.clusters.AccessibleClusters(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list clusters: %v", err)), nil
	}

	out := make([]clusterSummary, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, summarizeCluster(c))
	}
	return jsonResult(out)
}

func (s *Server) handleDiscoverCluster(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("cluster")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.scan(ctx, []string{name})
}

func (s *Server) handleDiscoverClusters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := stringSlice(request.GetArguments()["clusters"])
	if len(names) == 0 {
		if s.clusters == nil {
			return mcp.NewToolResultError("cluster source is not configured"), nil
		}
		clusters, err := s.clusters.AccessibleClusters(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list clusters: %v", err)), nil
		}
		for _, c := range clusters {
			names = append(names, c.Name)
		}
	}
	return s.scan(ctx, names)
}

func (s *Server) handleRetryFailed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.scanner == nil {
		return mcp.NewToolResultError("scanner is not configured"), nil
	}
	if _, err := s.scanner.RetryFailed(ctx, nil); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Retry failed: %v", err)), nil
	}
	s.saveReport()
	return jsonResult(s.response())
}

func (s *Server) handleCheckHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	lb := request.GetString("loadBalancerIP", "")
	switch {
	case url != "":
		return jsonResult(s.checker.Check(ctx, url))
	case lb != "":
		return jsonResult(s.checker.CheckWithFallback(ctx, lb))
	default:
		return mcp.NewToolResultError("either url or loadBalancerIP is required"), nil
	}
}

func (s *Server) scan(ctx context.Context, names []string) (*mcp.CallToolResult, error) {
	if s.scanner == nil {
		return mcp.NewToolResultError("scanner is not configured"), nil
	}
	_, err := s.scanner.Scan(ctx, names, func(p discovery.Progress) {
		logging.Debug("MCPServer", "Scan progress %d/%d (%s)", p.ScannedClusters, p.TotalClusters, p.CurrentCluster)
	})
	switch {
	case errors.Is(err, discovery.ErrScanInProgress), errors.Is(err, discovery.ErrNoClusters):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Discovery interrupted: %v", err)), nil
	}
	s.saveReport()
	return jsonResult(s.response())
}

func (s *Server) response() scanResponse {
	resp := scanResponse{
		Results:              s.scanner.Results(),
		Instances:            s.scanner.Instances(),
		FailedClusters:       s.scanner.FailedClusters(),
		CompletionPercentage: s.scanner.CompletionPercentage(),
	}
	if resp.Instances == nil {
		resp.Instances = []discovery.ServiceInstance{}
	}
	if resp.FailedClusters == nil {
		resp.FailedClusters = []string{}
	}
	return resp
}

func (s *Server) saveReport() {
	if s.reports == nil {
		return
	}
	if err := discovery.SaveReport(s.reports, discovery.LastReport, s.scanner.Report()); err != nil {
		logging.Warn("MCPServer", "Failed to persist scan report: %v", err)
	}
}

func summarizeCluster(c rancher.Cluster) clusterSummary {
	return clusterSummary{
		ID:                c.ID,
		Name:              c.Name,
		DisplayName:       c.DisplayNameOrName(),
		State:             c.State,
		Provider:          c.Provider,
		KubernetesVersion: c.KubernetesVersion(),
		PublicIP:          c.PublicIP(),
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringSlice accepts a JSON array of strings or a comma separated string.
func stringSlice(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
