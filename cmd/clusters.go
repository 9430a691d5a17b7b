package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suse/upscout/internal/cli"
)

func newClustersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List the clusters discovery can scan",
		Long: `Lists the downstream clusters that are active or report a Ready condition.
With kubeconfig.enabled set, the kubeconfig contexts are listed instead.`,
		Args: cobra.NoArgs,
		RunE: runClusters,
	}
}

func runClusters(cmd *cobra.Command, _ []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}

	clusters, err := env.clusters.AccessibleClusters(cmd.Context())
	if err != nil {
		return cli.ExplainRancherError(err, env.endpoint)
	}

	if len(clusters) == 0 && !printer.Structured() {
		fmt.Fprintln(cmd.OutOrStdout(), "No accessible clusters found.")
		return nil
	}
	return printer.Print(clusters, cli.ClusterView(clusters))
}
