package normalize

import (
	"regexp"
	"strings"
)

type rewrite struct {
	pattern *regexp.Regexp
	replace string
}

// Rules repairing the bold markers that HTML to Markdown conversion breaks
// apart. They only move whitespace, so repeated application converges.
var markdownRewrites = []rewrite{
	// "**A****B**" and "**A**   **B**" are separate headings.
	{regexp.MustCompile(`\*\*([^*\n]+)\*\*\*\*([^*\n]+)\*\*`), "**${1}**\n\n**${2}**"},
	{regexp.MustCompile(`\*\*([^*\n]+)\*\*[ \t]{2,}\*\*([^*\n]+)\*\*`), "**${1}**\n\n**${2}**"},
	// Whitespace just inside the markers: "** Skills**", "**Skills **".
	{regexp.MustCompile(`(^|\s)\*\*[ \t]+([^*\n]+?)\*\*`), "${1}**${2}**"},
	{regexp.MustCompile(`\*\*([^*\n]+?)[ \t]+\*\*(\s|$)`), "**${1}**${2}"},
	// A bold run split from the sentence it belongs to.
	{regexp.MustCompile(`\*\*([^*\n]+)\*\*\n([a-z])`), "**${1}** ${2}"},
	{regexp.MustCompile(`(\w)\n[ \t]+\*\*([^*\n]+)\*\*`), "${1} **${2}**"},
	// "**Benefits**Health" lost its space.
	{regexp.MustCompile(`(^|\s)\*\*([^*\s][^*\n]*)\*\*([A-Z][a-z])`), "${1}**${2}** ${3}"},
	{regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`), "\n\n"},
}

const maxMarkdownPasses = 16

// SanitizeMarkdown repairs bold emphasis and collapses runs of blank lines in
// converted descriptions. Text without bold markers is returned unchanged and
// SanitizeMarkdown(SanitizeMarkdown(s)) == SanitizeMarkdown(s).
func SanitizeMarkdown(text string) string {
	if !strings.Contains(text, "**") {
		return text
	}
	current := strings.TrimSpace(text)
	for i := 0; i < maxMarkdownPasses; i++ {
		next := current
		for _, rule := range markdownRewrites {
			next = rule.pattern.ReplaceAllString(next, rule.replace)
		}
		next = strings.TrimSpace(next)
		if next == current {
			break
		}
		current = next
	}
	return current
}
