// Package normalize turns the free text scraped from job boards into the
// canonical vocabulary of the models package. Every function is pure.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases value and strips diacritics so "Estágio" matches "estagio".
func Fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(folded)
}

// CleanText unescapes HTML entities and collapses whitespace.
func CleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

var (
	titlePrefix   = regexp.MustCompile(`(?i)^(vaga|job|position|role)\s*:\s*`)
	titleSuffix   = regexp.MustCompile(`(?i)\s+-\s+(vaga|job|position)$`)
	companySuffix = regexp.MustCompile(`(?i)[\s,]+(ltda|ltd|inc|corp|s\.?\s?a)\.?$`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// CleanTitle removes board specific decorations such as "Vaga:" prefixes.
func CleanTitle(value string) string {
	value = CleanText(value)
	cleaned := strings.TrimSpace(titleSuffix.ReplaceAllString(titlePrefix.ReplaceAllString(value, ""), ""))
	if cleaned == "" {
		return value
	}
	return cleaned
}

// CleanCompany drops legal-form suffixes (Ltda, Inc, S.A.).
func CleanCompany(value string) string {
	value = CleanText(value)
	cleaned := strings.TrimSpace(companySuffix.ReplaceAllString(value, ""))
	if cleaned == "" {
		return value
	}
	return cleaned
}

// ExtractEmails returns the distinct addresses found in text, lowercased, in order of appearance.
func ExtractEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		email := strings.ToLower(strings.TrimRight(match, "."))
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// wordPattern builds a case-insensitive matcher for any of words, bounded by
// non-alphanumeric characters. Inputs are expected to be folded first.
func wordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		quoted = append(quoted, regexp.QuoteMeta(word))
	}
	return regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:$|[^a-z0-9])`)
}
