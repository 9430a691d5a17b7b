package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/suse/upscout/internal/cli"
	"github.com/suse/upscout/internal/health"
)

func newHealthCmd() *cobra.Command {
	var loadBalancer string
	cmd := &cobra.Command{
		Use:   "health [url...]",
		Short: "Check Universal Proxy endpoints once",
		Long: `Issues GET <url>/health against every URL and reports whether it answered
with a 2xx status within the health timeout. Without arguments, the
endpoints of the monitor section of the configuration are checked.

With --load-balancer, the proxy port of the load balancer address is checked
and http://localhost:8911 is tried when it is not healthy, which covers a
port-forward to the proxy.

The exit code is 1 when any endpoint is unhealthy.`,
		Example: `  upscout health http://10.43.12.7:8911
  upscout health --load-balancer 203.0.113.10
  upscout health -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, args, loadBalancer)
		},
	}
	cmd.Flags().StringVar(&loadBalancer, "load-balancer", "", "Load balancer address to check, falling back to localhost")
	return cmd
}

func runHealth(cmd *cobra.Command, args []string, loadBalancer string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	if loadBalancer != "" {
		if len(args) > 0 {
			return &cli.ConfigError{Err: fmt.Errorf("--load-balancer cannot be combined with URL arguments")}
		}
		results := []health.Result{newChecker(cfg).CheckWithFallback(cmd.Context(), loadBalancer)}
		if err := printer.Print(results, cli.HealthView(results)); err != nil {
			return err
		}
		return unhealthyError(results)
	}

	urls := args
	if len(urls) == 0 {
		for _, u := range cfg.Monitor.Endpoints {
			urls = append(urls, u)
		}
		sort.Strings(urls)
	}
	if len(urls) == 0 {
		return &cli.ConfigError{Err: fmt.Errorf("no URLs given and monitor.endpoints is empty")}
	}

	results := checkAll(cmd, newChecker(cfg), urls)
	if err := printer.Print(results, cli.HealthView(results)); err != nil {
		return err
	}
	return unhealthyError(results)
}

func unhealthyError(results []health.Result) error {
	unhealthy := 0
	for _, r := range results {
		if !r.Healthy {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d endpoints unhealthy", unhealthy, len(results))
	}
	return nil
}

// checkAll checks urls concurrently and returns the results in input order.
func checkAll(cmd *cobra.Command, checker *health.Checker, urls []string) []health.Result {
	results := make([]health.Result, len(urls))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(cfg.Discovery.MaxConcurrent, 1))
	for i, u := range urls {
		g.Go(func() error {
			results[i] = checker.Check(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
