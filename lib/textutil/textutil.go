package textutil

import (
	"regexp"
	"strings"
)

var (
	spaceRuns      = regexp.MustCompile(` {2,}`)
	inlineBullets  = regexp.MustCompile(`\s-\s`)
	unicodeBullets = regexp.MustCompile(` *• *`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
)

// FormatMarkdown converts a plain text description into lightweight
// Markdown:
//   - normalize newlines to \n
//   - runs of 2+ spaces used as separators become paragraph breaks
//   - inline " - " separators and "•" bullets become list items
//   - 3+ consecutive newlines collapse to exactly two
//   - leading/trailing whitespace is trimmed
func FormatMarkdown(raw string) string {
	if raw == "" {
		return raw
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = spaceRuns.ReplaceAllString(text, "\n\n")
	text = inlineBullets.ReplaceAllString(text, "\n- ")
	text = unicodeBullets.ReplaceAllString(text, "\n- ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// ReasonSlug derives an exclusion reason from moderation flags: the
// first flag lower-cased with spaces and underscores replaced by
// hyphens, or "inappropriate" when no flags were given.
func ReasonSlug(flags []string) string {
	if len(flags) == 0 {
		return "inappropriate"
	}
	reason := strings.ToLower(flags[0])
	reason = strings.ReplaceAll(reason, " ", "-")
	reason = strings.ReplaceAll(reason, "_", "-")
	return reason
}
