package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"sigs.k8s.io/yaml"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a table with additional columns
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML using the JSON field names
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatTemplate renders a Go template with sprig functions
	OutputFormatTemplate OutputFormat = "template"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatWide,
	OutputFormatJSON,
	OutputFormatYAML,
	OutputFormatTemplate,
}

// ValidateOutputFormat validates that the given format string is a supported output format.
// Returns nil if valid, or an error with a helpful message listing valid formats.
func ValidateOutputFormat(format string) error {
	for _, f := range ValidOutputFormats {
		if OutputFormat(format) == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml, template)", format)
}

// Tabular is implemented by views that can render themselves as table rows.
type Tabular interface {
	Headers(wide bool) []string
	Rows(wide bool) [][]string
}

// Printer writes command results in the selected format.
type Printer struct {
	Format    OutputFormat
	Template  string
	NoHeaders bool
	Out       io.Writer
}

// Print writes data in the printer's format. Table formats render view;
// the structured formats serialize data.
func (p *Printer) Print(data interface{}, view Tabular) error {
	switch p.Format {
	case OutputFormatJSON:
		return p.printJSON(data)
	case OutputFormatYAML:
		return p.printYAML(data)
	case OutputFormatTemplate:
		return p.printTemplate(data)
	case OutputFormatWide:
		return p.printTable(view, true)
	default:
		return p.printTable(view, false)
	}
}

// Structured reports whether the format is meant for machines. Commands
// skip spinners and footers in that case.
func (p *Printer) Structured() bool {
	switch p.Format {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatTemplate:
		return true
	default:
		return false
	}
}

func (p *Printer) printJSON(data interface{}) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	return nil
}

func (p *Printer) printYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	_, err = p.Out.Write(out)
	return err
}

// printTemplate executes the template against the JSON form of data, so
// templates use the same field names as --output json.
func (p *Printer) printTemplate(data interface{}) error {
	if strings.TrimSpace(p.Template) == "" {
		return &ConfigError{Err: fmt.Errorf("--output template requires --template or output.template")}
	}
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(p.Template)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("invalid template: %w", err)}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to prepare template data: %w", err)
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("failed to prepare template data: %w", err)
	}

	if err := tmpl.Execute(p.Out, generic); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

func (p *Printer) printTable(view Tabular, wide bool) error {
	if view == nil {
		return fmt.Errorf("no table view for this output")
	}
	tw := NewPlainTableWriter(p.Out)
	tw.SetHeaders(view.Headers(wide))
	tw.SetNoHeaders(p.NoHeaders)
	for _, row := range view.Rows(wide) {
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}
