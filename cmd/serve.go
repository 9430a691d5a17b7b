package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suse/upscout/internal/cli"
	"github.com/suse/upscout/internal/mcpserver"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/pkg/logging"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	defaultServeListen = "127.0.0.1:8920"
)

type serveOptions struct {
	transport string
	listen    string
	deep      bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve discovery as MCP tools",
		Long: `Starts an MCP server exposing the tools list_clusters, discover_cluster,
discover_clusters, retry_failed_clusters and check_health.

The stdio transport is meant to be launched by an MCP client. With
--transport streamable-http the server listens on --listen and serves
MCP at /mcp.`,
		Example: `  upscout serve
  upscout serve --transport streamable-http --listen 0.0.0.0:8920`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.listen, "listen", defaultServeListen, "Listen address for streamable-http")
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "Perform an MCP handshake against every instance found")
	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return &cli.ConfigError{Err: fmt.Errorf("unsupported transport %q (valid: stdio, streamable-http)", opts.transport)}
	}

	srvCfg := mcpserver.Config{
		Name:    "upscout",
		Version: GetVersion(),
		Checker: newChecker(cfg),
		Reports: openReportStore(),
	}

	env, err := newEnvironment(cfg)
	switch {
	case errors.Is(err, rancher.ErrNotConfigured):
		logging.Warn("CLI", "Rancher is not configured, only check_health is usable")
	case err != nil:
		return err
	default:
		srvCfg.Clusters = env.clusters
		srvCfg.Scanner = env.newScanner(opts.deep || cfg.Discovery.DeepProbe)
	}

	srv := mcpserver.New(srvCfg)
	if opts.transport == transportStdio {
		return srv.ServeStdio()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ServeHTTP(ctx, opts.listen)
}
