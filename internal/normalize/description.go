package normalize

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
)

var (
	htmlTagPattern = regexp.MustCompile(`<(p|br|div|ul|ol|li|strong|b|em|h[1-6]|span|a)[\s>/]`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

// LooksLikeHTML reports whether text contains common HTML markup.
func LooksLikeHTML(text string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(text))
}

// FormatDescription renders a scraped description in the requested format.
// isHTML tells whether raw is markup or already plain text.
func FormatDescription(raw string, isHTML bool, format models.DescriptionFormat) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	switch format {
	case models.FormatHTML:
		return raw
	case models.FormatPlain:
		if !isHTML {
			return raw
		}
		return htmlToPlain(raw)
	default:
		if !isHTML {
			return SanitizeMarkdown(raw)
		}
		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(raw)
		if err != nil {
			return htmlToPlain(raw)
		}
		return SanitizeMarkdown(strings.TrimSpace(markdown))
	}
}

func htmlToPlain(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return CleanText(raw)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, CleanText(line))
	}
	text := strings.Join(out, "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}
