package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suse/upscout/internal/cli"
	"github.com/suse/upscout/internal/discovery"
	"github.com/suse/upscout/internal/security"
	"github.com/suse/upscout/pkg/logging"
)

type discoverOptions struct {
	all         bool
	namespaces  []string
	deep        bool
	retryFailed int
	noSave      bool
}

func newDiscoverCmd() *cobra.Command {
	var opts discoverOptions
	cmd := &cobra.Command{
		Use:   "discover [cluster...]",
		Short: "Discover Universal Proxy instances",
		Long: `Scans the named clusters, or every accessible cluster with --all, one after
the other. In each cluster, services exposing port 8911 are health-checked
in order and the first healthy one wins; when none answers, every proxy pod
is checked instead.

Clusters that fail are reported and the exit code is 3. --retry-failed N
retries them up to N more times; without cluster names it retries the
clusters that failed in the last saved scan.`,
		Example: `  upscout discover --all
  upscout discover prod-eu prod-us --namespaces suse-ai-up --deep
  upscout discover --retry-failed
  upscout discover --all -o template --template '{{ range .instances }}{{ .url }}{{ "\n" }}{{ end }}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Scan every accessible cluster")
	cmd.Flags().StringSliceVar(&opts.namespaces, "namespaces", nil, "Only check services and pods in these namespaces")
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "Perform an MCP handshake against every instance found")
	cmd.Flags().IntVar(&opts.retryFailed, "retry-failed", 0, "Retry failed clusters up to N times")
	cmd.Flags().Lookup("retry-failed").NoOptDefVal = "1"
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not save the scan for later retries")
	return cmd
}

func runDiscover(cmd *cobra.Command, args []string, opts discoverOptions) error {
	resume := len(args) == 0 && !opts.all && opts.retryFailed > 0
	switch {
	case opts.all && len(args) > 0:
		return &cli.ConfigError{Err: errors.New("cluster names and --all are mutually exclusive")}
	case !opts.all && len(args) == 0 && !resume:
		return &cli.ConfigError{Err: errors.New("specify cluster names, --all or --retry-failed")}
	case opts.retryFailed < 0:
		return &cli.ConfigError{Err: errors.New("--retry-failed must not be negative")}
	}

	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	c := cfg
	if len(opts.namespaces) > 0 {
		c.Discovery.AllowedNamespaces = opts.namespaces
	}
	env, err := newEnvironment(c)
	if err != nil {
		return err
	}
	scanner := env.newScanner(opts.deep || c.Discovery.DeepProbe)

	var store discovery.ReportStore
	if !opts.noSave || resume {
		store = openReportStore()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := cli.NewScanProgress(cmd.ErrOrStderr(), flags.Quiet)
	scanErr := scan(ctx, env, scanner, store, args, opts, resume, progress)
	if errors.Is(scanErr, errNothingToRetry) {
		fmt.Fprintln(cmd.OutOrStdout(), "No failed clusters to retry.")
		return nil
	}
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		return scanErr
	}

	report := scanner.Report()
	if store != nil && !opts.noSave {
		if err := discovery.SaveReport(store, discovery.LastReport, report); err != nil {
			logging.WarnErr("CLI", err, "Failed to save scan report")
		}
	}

	if err := printReport(cmd.OutOrStdout(), printer, report); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("discovery interrupted: %w", scanErr)
	}
	if len(report.FailedClusters) > 0 {
		return &cli.PartialFailureError{Failed: report.FailedClusters, Total: len(report.Results)}
	}
	return nil
}

var errNothingToRetry = errors.New("no failed clusters to retry")

// scan runs the initial scan, or restores the last saved one when resuming,
// followed by the requested retry rounds.
func scan(ctx context.Context, env *environment, scanner *discovery.Scanner, store discovery.ReportStore,
	names []string, opts discoverOptions, resume bool, progress *cli.ScanProgress) error {
	rounds := opts.retryFailed

	switch {
	case resume:
		if store == nil {
			return errors.New("cannot retry: scan reports are unavailable")
		}
		last, err := discovery.LoadReport(store, discovery.LastReport)
		if err != nil {
			return err
		}
		if err := scanner.Restore(last); err != nil {
			return err
		}
		if len(scanner.FailedClusters()) == 0 {
			return errNothingToRetry
		}
	case opts.all:
		clusters, err := env.clusters.AccessibleClusters(ctx)
		if err != nil {
			return cli.ExplainRancherError(err, env.endpoint)
		}
		if len(clusters) == 0 {
			return discovery.ErrNoClusters
		}
		names = make([]string, 0, len(clusters))
		for _, c := range clusters {
			names = append(names, c.Name)
		}
	}

	progress.Start("Starting discovery")
	defer func() { progress.Stop("") }()

	if !resume {
		if _, err := scanner.Scan(ctx, names, progress.Update); err != nil {
			return err
		}
	}
	for i := 0; i < rounds && len(scanner.FailedClusters()) > 0; i++ {
		logging.Info("CLI", "Retrying %d failed cluster(s), attempt %d of %d", len(scanner.FailedClusters()), i+1, rounds)
		if _, err := scanner.RetryFailed(ctx, progress.Update); err != nil {
			return err
		}
	}
	return nil
}

// printReport prints the instances found and the per-cluster results. The
// structured formats print the whole report.
func printReport(out io.Writer, printer *cli.Printer, report discovery.Report) error {
	if printer.Structured() {
		return printer.Print(report, nil)
	}

	if len(report.Instances) == 0 {
		fmt.Fprintln(out, "No Universal Proxy instances found.")
	} else if err := printer.Print(nil, cli.InstanceView(report.Instances)); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := printer.Print(nil, cli.ScanResultView(report.Results)); err != nil {
		return err
	}

	if printer.Format == cli.OutputFormatWide {
		var findings []security.Finding
		for _, inst := range report.Instances {
			findings = append(findings, inst.Findings...)
		}
		if len(findings) > 0 {
			fmt.Fprintln(out)
			if err := printer.Print(nil, cli.FindingView(findings)); err != nil {
				return err
			}
		}
	}
	return nil
}
