package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

var stepstoneJobID = regexp.MustCompile(`--(\d+)(?:-inline)?(?:\.html)?(?:[/?#]|$)`)

var stepstoneHeaders = map[string]string{
	"accept-language": "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
}

// Stepstone reads stepstone.de result pages, which are paginated 1-based.
type Stepstone struct{}

func NewStepstone() *Stepstone {
	return &Stepstone{}
}

func (s *Stepstone) Site() models.Site {
	return models.SiteStepstone
}

func (s *Stepstone) Profile() Profile {
	return Profile{
		DefaultCountry:  "Deutschland",
		DefaultInterval: models.IntervalYearly,
		IDPrefix:        "ss-",
		Delay:           2 * time.Second,
		MaxRequests:     DefaultMaxRequests,
	}
}

func (s *Stepstone) Strategies(in models.ScraperInput) []Strategy {
	strategies := []Strategy{{
		Name:    "search",
		URL:     func(page int) string { return buildStepstoneURL(in, page+1) },
		Headers: stepstoneHeaders,
	}}
	if in.Location != "" {
		// Unknown location slugs return an empty page; retry nationwide.
		nationwide := in
		nationwide.Location = ""
		strategies = append(strategies, Strategy{
			Name:     "nationwide",
			MaxPages: 3,
			URL:      func(page int) string { return buildStepstoneURL(nationwide, page+1) },
			Headers:  stepstoneHeaders,
		})
	}
	return strategies
}

func buildStepstoneURL(in models.ScraperInput, page int) string {
	base := "https://www.stepstone.de/jobs"
	query := stepstoneSlug(in.SearchTerm)
	if query == "" {
		query = strings.ToLower(strings.TrimSpace(in.SearchTerm))
	}
	path := fmt.Sprintf("%s/%s", base, url.PathEscape(query))
	if in.Location != "" {
		location := stepstoneSlug(in.Location)
		if location != "" {
			path = fmt.Sprintf("%s/in-%s", path, url.PathEscape(location))
		}
	}
	if page > 1 {
		return fmt.Sprintf("%s?page=%d", path, page)
	}
	return path
}

func stepstoneSlug(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func (s *Stepstone) Extract(page Page) Extraction {
	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}
	jobs, skipped := parseStepstoneJobs(doc)
	return Extraction{Jobs: jobs, Skipped: skipped, Final: len(jobs) == 0}
}

func parseStepstoneJobs(doc *goquery.Document) ([]RawJob, int) {
	jobs := parseJSONLDJobs(doc)
	cards, skipped := parseStepstoneJobCards(doc)
	jobs = append(jobs, cards...)

	seen := map[string]struct{}{}
	out := jobs[:0]
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = stepstoneID(job.URL)
		}
		key := job.ID
		if key == "" {
			key = job.URL
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, job)
	}
	return out, skipped
}

func stepstoneID(link string) string {
	m := stepstoneJobID.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseStepstoneJobCards(doc *goquery.Document) ([]RawJob, int) {
	var jobs []RawJob
	skipped := 0
	seen := map[string]struct{}{}

	doc.Find("a[href*='stellenangebote--']").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		link := absoluteURL("https://www.stepstone.de", href)
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}

		title := cleanText(s.Text())
		if title == "" {
			skipped++
			return
		}

		card := stepstoneCardForAnchor(s)
		company, location, snippet, posted, remote := stepstoneParseCard(card, title)

		job := RawJob{
			ID:          stepstoneID(link),
			Title:       title,
			Company:     company,
			Location:    location,
			URL:         link,
			Description: snippet,
			Posted:      posted,
			Salary:      cleanText(card.Find("[data-at='job-item-salary-info']").First().Text()),
		}
		if remote {
			job.Remote = boolPtr(true)
		}
		jobs = append(jobs, job)
	})

	return jobs, skipped
}

// Enrich reads the job ad page for the full description.
func (s *Stepstone) Enrich(ctx context.Context, fetcher Fetcher, raw RawJob) RawJob {
	if raw.URL == "" {
		return raw
	}
	resp, err := fetcher.Get(ctx, raw.URL, stepstoneHeaders)
	if err != nil || resp.Status < 200 || resp.Status >= 300 {
		return raw
	}
	doc, err := parseDocument(resp.Body)
	if err != nil {
		return raw
	}
	if description := parseStepstoneDescription(doc); description != "" {
		raw.Description = description
		raw.DescriptionHTML = normalize.LooksLikeHTML(description)
	}
	return raw
}

func parseStepstoneDescription(doc *goquery.Document) string {
	section := doc.Find("[data-at='jobad-description'], [data-genesis-element='CARD_CONTENT'] article").First()
	if section.Length() > 0 {
		if content, err := section.Html(); err == nil && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	for _, job := range parseJSONLDJobs(doc) {
		if job.Description != "" {
			return job.Description
		}
	}
	return ""
}

func stepstoneCardForAnchor(s *goquery.Selection) *goquery.Selection {
	for _, tag := range []string{"article", "li", "section", "div"} {
		if card := s.Closest(tag); card.Length() > 0 {
			return card
		}
	}
	return s.Parent()
}

// stepstoneParseCard reads company, location, teaser, posting age and the
// remote flag from the free text lines of a result card.
func stepstoneParseCard(card *goquery.Selection, title string) (company, location, snippet, posted string, remote bool) {
	if card == nil || card.Length() == 0 {
		return "", "", "", "", false
	}

	lines := stepstoneCardLines(card, title)
	candidates := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case normalize.HasRemoteKeyword(line):
			remote = true
		case stepstoneIsPostedLine(line):
			if posted == "" {
				posted = line
			}
		case !stepstoneIsNoiseLine(line):
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		company = candidates[0]
	}
	if len(candidates) > 1 {
		location = candidates[1]
	}
	for _, line := range candidates[min(2, len(candidates)):] {
		if len(line) >= 30 {
			snippet = line
			break
		}
	}
	if snippet == "" && len(candidates) > 2 {
		snippet = candidates[2]
	}

	timeEl := card.Find("time").First()
	if value := cleanText(timeEl.AttrOr("datetime", "")); value != "" {
		posted = value
	} else if value := cleanText(timeEl.Text()); value != "" {
		posted = value
	}
	return company, location, snippet, posted, remote
}

func stepstoneCardLines(card *goquery.Selection, title string) []string {
	parts := strings.Split(card.Text(), "\n")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{title: {}}
	for _, part := range parts {
		line := cleanText(part)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func stepstoneIsPostedLine(line string) bool {
	value := normalize.Fold(line)
	return strings.HasPrefix(value, "vor ") || value == "heute" || value == "gestern"
}

var stepstoneNoise = []string{"gehalt anzeigen", "schnelle bewerbung", "anschreiben nicht erforderlich"}

func stepstoneIsNoiseLine(line string) bool {
	value := normalize.Fold(line)
	switch value {
	case "gehalt", "mehr", "neu", "top-job":
		return true
	}
	for _, noise := range stepstoneNoise {
		if strings.Contains(value, noise) {
			return true
		}
	}
	return false
}
