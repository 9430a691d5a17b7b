package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/pkg/logging"
)

// ClusterLister returns the clusters discovery may scan.
type ClusterLister interface {
	AccessibleClusters(ctx context.Context) ([]rancher.Cluster, error)
}

// Config holds the dependencies of the MCP server.
type Config struct {
	// Name and Version are announced in the initialize handshake.
	Name    string
	Version string

	Clusters ClusterLister
	Scanner  *discovery.Scanner
	Checker  *health.Checker

	// Reports, when set, receives every finished scan under
	// discovery.LastReport.
	Reports discovery.ReportStore
}

// Server wraps an mcp-go server with the discovery tools registered.
type Server struct {
	clusters  ClusterLister
	scanner   *discovery.Scanner
	checker   *health.Checker
	reports   discovery.ReportStore
	mcpServer *server.MCPServer
}

// New creates the server and registers its tools.
//
// A nil Checker gets a default one. Clusters and Scanner are required for
// the discovery tools; the server still starts without them so that
// check_health stays usable, and the discovery tools report the missing
// dependency as a tool error.
func New(cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "upscout"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Checker == nil {
		cfg.Checker = health.NewChecker()
	}

	s := &Server{
		clusters: cfg.Clusters,
		scanner:  cfg.Scanner,
		checker:  cfg.Checker,
		reports:  cfg.Reports,
		mcpServer: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(false),
			server.WithInstructions("Discover SUSE AI Universal Proxy instances across Rancher managed clusters. "+
				"Use list_clusters first, then discover_clusters. Discovery is read-only."),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	logging.Info("MCPServer", "Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// Handler returns an http.Handler serving the streamable HTTP transport at
// /mcp.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer))
	return r
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("MCPServer", "Serving MCP over streamable HTTP on %s/mcp", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info("MCPServer", "Shutting down MCP HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_clusters",
		mcp.WithDescription("List the accessible downstream clusters (active, or with a Ready condition)"),
	), s.handleListClusters)

	s.mcpServer.AddTool(mcp.NewTool("discover_cluster",
		mcp.WithDescription("Discover Universal Proxy instances in one cluster. Services exposing port 8911 are health-checked first; proxy pods are checked only when no service answers."),
		mcp.WithString("cluster",
			mcp.Required(),
			mcp.Description("Cluster name as shown by list_clusters"),
		),
	), s.handleDiscoverCluster)

	s.mcpServer.AddTool(mcp.NewTool("discover_clusters",
		mcp.WithDescription("Discover Universal Proxy instances in several clusters, one after the other. Without clusters every accessible cluster is scanned."),
		mcp.WithArray("clusters",
			mcp.Description("Cluster names to scan"),
			mcp.WithStringItems(),
		),
	), s.handleDiscoverClusters)

	s.mcpServer.AddTool(mcp.NewTool("retry_failed_clusters",
		mcp.WithDescription("Rescan only the clusters that failed in the last scan and merge the results"),
	), s.handleRetryFailed)

	s.mcpServer.AddTool(mcp.NewTool("check_health",
		mcp.WithDescription("Check the /health endpoint of a Universal Proxy"),
		mcp.WithString("url",
			mcp.Description("Base URL of the proxy, e.g. http://10.43.0.10:8911"),
		),
		mcp.WithString("loadBalancerIP",
			mcp.Description("Load balancer address to check on the proxy port when no url is given; localhost is tried when it is not healthy"),
		),
	), s.handleCheckHealth)
}
