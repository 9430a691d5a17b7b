package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// CommandFlags holds the flag values shared by every upscout command.
type CommandFlags struct {
	// ConfigPath is the configuration file; empty means the default location
	ConfigPath string
	// LogLevel overrides logLevel from the configuration file
	LogLevel string
	// OutputFormat specifies the desired output format
	OutputFormat string
	// Template is the Go template used with --output template
	Template string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// NoColor disables colored table cells
	NoColor bool
}

// RegisterCommonFlags registers the shared flags as persistent flags of cmd.
//
// The registered flags are:
//   - --config: Configuration file (env: UPSCOUT_CONFIG)
//   - --log-level: debug, info, warn or error
//   - --output/-o: Output format (table, wide, json, yaml, template)
//   - --template: Go template for --output template
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress progress output
//   - --no-color: Disable colors
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Configuration file (default ~/.config/upscout/config.yaml, env: UPSCOUT_CONFIG)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", "", "Output format (table, wide, json, yaml, template)")
	cmd.PersistentFlags().StringVar(&flags.Template, "template", "", "Go template for --output template (sprig functions available)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress output")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
}

// NewPrinter builds a Printer from the flags. Format and template fall back
// to the configured defaults when the flags are empty.
func (f *CommandFlags) NewPrinter(out io.Writer, defaultFormat, defaultTemplate string) (*Printer, error) {
	format := f.OutputFormat
	if format == "" {
		format = defaultFormat
	}
	if format == "" {
		format = string(OutputFormatTable)
	}
	if err := ValidateOutputFormat(format); err != nil {
		return nil, &ConfigError{Err: err}
	}

	tmpl := f.Template
	if tmpl == "" {
		tmpl = defaultTemplate
	}

	SetColor(!f.NoColor)
	return &Printer{
		Format:    OutputFormat(format),
		Template:  tmpl,
		NoHeaders: f.NoHeaders,
		Out:       out,
	}, nil
}
