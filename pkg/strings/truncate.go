package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest free-text cell (errors, evidence) in
// non-wide table output.
const DefaultCellMaxLen = 60

// MinTruncateLen is the smallest maxLen that leaves room for one character
// plus "...".
const MinTruncateLen = 4

// SingleLine collapses all whitespace runs, newlines included, into single
// spaces and trims the ends.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateCell makes s single-line and cuts it to maxLen runes, ending in
// "..." when cut. maxLen below MinTruncateLen is raised to MinTruncateLen.
func TruncateCell(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(SingleLine(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateMiddle cuts s to maxLen runes by replacing its middle with "...",
// keeping both ends. Used for URLs and host lists where the port or the last
// host matters.
func TruncateMiddle(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(SingleLine(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	keep := maxLen - 3
	head := (keep + 1) / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
