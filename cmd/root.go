package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suse/upscout/internal/cli"
	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/pkg/logging"
)

// skipConfigAnnotation marks commands that run without loading the
// configuration file.
const skipConfigAnnotation = "upscout/skip-config"

var (
	// flags holds the persistent flags shared by all commands.
	flags cli.CommandFlags

	// cfg is the configuration loaded before any command runs.
	cfg = config.GetDefaultConfig()
)

// rootCmd represents the base command for the upscout application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "upscout",
	Short: "Discover SUSE AI Universal Proxy instances across Rancher clusters",
	Long: `upscout finds SUSE AI Universal Proxy deployments in the clusters managed
by a Rancher server. Services exposing port 8911 are health-checked first;
proxy pods are checked only when no service answers.

Connection settings are read from ~/.config/upscout/config.yaml and the
UPSCOUT_RANCHER_URL and UPSCOUT_RANCHER_TOKEN environment variables.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: initCommand,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "upscout version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCodeFor(err))
	}
}

// initCommand loads the configuration and sets up logging. Flags override
// the configuration file.
func initCommand(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfigAnnotation] != "true" {
		loaded, err := config.LoadConfig(flags.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	levelName := flags.LogLevel
	if levelName == "" {
		levelName = cfg.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return &cli.ConfigError{Err: fmt.Errorf("--log-level: %w", err)}
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())
	cli.SetColor(!flags.NoColor)
	return nil
}

// newPrinter builds the output printer of cmd from the flags and the
// output section of the configuration.
func newPrinter(cmd *cobra.Command) (*cli.Printer, error) {
	return flags.NewPrinter(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.Template)
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &flags)

	rootCmd.AddCommand(newClustersCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
