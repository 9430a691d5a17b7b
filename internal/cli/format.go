package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// SetColor enables or disables colored cells and messages.
func SetColor(enabled bool) {
	if enabled {
		text.EnableColors()
	} else {
		text.DisableColors()
	}
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprint("✓ ") + msg
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprint("⚠ ") + msg
}

// FormatStatus colors well-known status words: green for good, red for
// bad, yellow for in-between.
func FormatStatus(status string) string {
	if status == "" {
		return "-"
	}
	switch strings.ToLower(status) {
	case "available", "completed", "healthy", "active", "true", "secure", "ok":
		return text.FgGreen.Sprint(status)
	case "unreachable", "error", "failed", "unhealthy", "false", "critical", "high":
		return text.FgRed.Sprint(status)
	case "scanning", "checking", "pending", "unknown", "medium", "provisioning", "updating":
		return text.FgYellow.Sprint(status)
	default:
		return status
	}
}

// FormatDuration formats a duration for tables: milliseconds below one
// second, then seconds, minutes and hours with one decimal.
func FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	switch {
	case d <= 0:
		return "-"
	case ms < 1000:
		return fmt.Sprintf("%.0fms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", ms/1000)
	case ms < 3600000:
		return fmt.Sprintf("%.1fm", ms/60000)
	default:
		return fmt.Sprintf("%.1fh", ms/3600000)
	}
}

// FormatTimestamp renders t as "2006-01-02 15:04:05" in UTC.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatList joins values with commas, or "-" when empty.
func FormatList(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
