package mcpprobe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/suse/upscout/pkg/logging"
)

const (
	// DefaultPath is the MCP endpoint the proxy serves.
	DefaultPath = "/mcp"
	// DefaultTimeout bounds the whole probe.
	DefaultTimeout = 10 * time.Second

	protocolVersion = "2024-11-05"
)

// Info describes what an MCP endpoint reported during the handshake.
type Info struct {
	URL             string        `json:"url"`
	ServerName      string        `json:"serverName,omitempty"`
	ServerVersion   string        `json:"serverVersion,omitempty"`
	ProtocolVersion string        `json:"protocolVersion,omitempty"`
	Instructions    string        `json:"instructions,omitempty"`
	ToolCount       int           `json:"toolCount"`
	Tools           []string      `json:"tools,omitempty"`
	AuthRequired    bool          `json:"authRequired"`
	ResponseTime    time.Duration `json:"responseTime"`
}

// Open reports whether the handshake completed without credentials.
func (i Info) Open() bool {
	return !i.AuthRequired && i.ServerName != ""
}

// Prober runs MCP handshakes.
type Prober struct {
	path       string
	timeout    time.Duration
	httpClient *http.Client
	version    string
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPath overrides the MCP endpoint path.
func WithPath(path string) Option {
	return func(p *Prober) {
		if path != "" {
			p.path = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used by the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		p.httpClient = c
	}
}

// WithClientVersion sets the version announced in clientInfo.
func WithClientVersion(v string) Option {
	return func(p *Prober) {
		if v != "" {
			p.version = v
		}
	}
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		path:    DefaultPath,
		timeout: DefaultTimeout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Timeout returns the per-probe timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe connects to baseURL's MCP endpoint and reports what the server
// announced. A 401 answer yields Info with AuthRequired set and no error.
func (p *Prober) Probe(ctx context.Context, baseURL string) (Info, error) {
	endpoint := strings.TrimRight(baseURL, "/") + p.path
	info := Info{URL: endpoint}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var opts []transport.StreamableHTTPCOption
	if p.httpClient != nil {
		opts = append(opts, transport.WithHTTPBasicClient(p.httpClient))
	}

	start := time.Now()
	mcpClient, err := client.NewStreamableHttpClient(endpoint, opts...)
	if err != nil {
		return info, fmt.Errorf("failed to create MCP client for %s: %w", endpoint, err)
	}
	defer mcpClient.Close()

	initResult, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "upscout",
				Version: p.version,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	info.ResponseTime = time.Since(start)
	if err != nil {
		if isAuthError(err) {
			logging.Debug("MCPProbe", "Authentication required for %s", endpoint)
			info.AuthRequired = true
			return info, nil
		}
		return info, fmt.Errorf("failed to initialize MCP session with %s: %w", endpoint, err)
	}

	info.ServerName = initResult.ServerInfo.Name
	info.ServerVersion = initResult.ServerInfo.Version
	info.ProtocolVersion = initResult.ProtocolVersion
	info.Instructions = initResult.Instructions

	if initResult.Capabilities.Tools != nil {
		tools, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			logging.Warn("MCPProbe", "Listing tools on %s failed: %v", endpoint, err)
		} else {
			info.ToolCount = len(tools.Tools)
			for _, tool := range tools.Tools {
				info.Tools = append(info.Tools, tool.Name)
			}
		}
	}
	info.ResponseTime = time.Since(start)

	logging.Debug("MCPProbe", "Probed %s: server %s %s, %d tools", endpoint, info.ServerName, info.ServerVersion, info.ToolCount)
	return info, nil
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized")
}
