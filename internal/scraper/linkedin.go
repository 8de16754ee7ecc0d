package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
)

const (
	linkedInSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInDetailAPI = "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/"
	linkedInPageSize  = 10
)

var (
	linkedInHeaders = map[string]string{
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language": "en-US,en;q=0.9",
	}
	linkedInJobTypes = map[models.JobType]string{
		models.JobTypeFullTime:   "F",
		models.JobTypePartTime:   "P",
		models.JobTypeContract:   "C",
		models.JobTypeInternship: "I",
		models.JobTypeTemporary:  "T",
	}
	linkedInApplyURL = regexp.MustCompile(`[?&]url=([^"&]+)`)
)

// LinkedIn reads the public guest job search API.
type LinkedIn struct{}

func NewLinkedIn() *LinkedIn {
	return &LinkedIn{}
}

func (l *LinkedIn) Site() models.Site {
	return models.SiteLinkedIn
}

func (l *LinkedIn) Profile() Profile {
	return Profile{
		DefaultInterval: models.IntervalYearly,
		IDPrefix:        "li-",
		Delay:           3 * time.Second,
		// Ten cards per page; enough pages to reach the largest allowed result count.
		MaxRequests: models.MaxResultsWanted / linkedInPageSize,
	}
}

func (l *LinkedIn) Strategies(in models.ScraperInput) []Strategy {
	return []Strategy{{
		Name:    "guest-api",
		URL:     func(page int) string { return buildLinkedInURL(in, page) },
		Headers: linkedInHeaders,
	}}
}

func buildLinkedInURL(in models.ScraperInput, page int) string {
	values := url.Values{}
	values.Set("keywords", in.SearchTerm)
	if in.Location != "" {
		values.Set("location", in.Location)
	}
	if in.HoursOld > 0 {
		values.Set("f_TPR", fmt.Sprintf("r%d", in.HoursOld*3600))
	}
	if in.RemoteOnly {
		values.Set("f_WT", "2")
	}
	if code, ok := linkedInJobTypes[in.JobType]; ok {
		values.Set("f_JT", code)
	}
	values.Set("start", strconv.Itoa(page*linkedInPageSize))
	return linkedInSearchURL + "?" + values.Encode()
}

func (l *LinkedIn) Extract(page Page) Extraction {
	// The guest API answers past the last page with an empty body.
	if strings.TrimSpace(string(page.Body)) == "" {
		return Extraction{Final: true}
	}
	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}
	jobs, skipped := parseLinkedInJobs(doc)
	return Extraction{Jobs: jobs, Skipped: skipped, Final: len(jobs) == 0}
}

func parseLinkedInJobs(doc *goquery.Document) ([]RawJob, int) {
	var jobs []RawJob
	skipped := 0
	seen := map[string]struct{}{}

	doc.Find("a.base-card__full-link, a[href*='/jobs/view/']").Each(func(_ int, s *goquery.Selection) {
		link := strings.TrimSpace(s.AttrOr("href", ""))
		if link == "" {
			return
		}
		link = absoluteURL("https://www.linkedin.com", link)
		if parsed, err := url.Parse(link); err == nil {
			parsed.RawQuery = ""
			parsed.Fragment = ""
			link = parsed.String()
		}

		card := linkedInCard(s)
		id := linkedInJobID(card, link)
		key := id
		if key == "" {
			key = link
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}

		title := cleanText(card.Find("h3.base-search-card__title").First().Text())
		if title == "" {
			title = cleanText(s.Find(".sr-only").First().Text())
		}
		if title == "" {
			skipped++
			return
		}

		subtitle := card.Find("h4.base-search-card__subtitle").First()
		posted := card.Find("time").First()
		jobs = append(jobs, RawJob{
			ID:          id,
			Title:       title,
			Company:     cleanText(subtitle.Text()),
			Location:    cleanText(card.Find("span.job-search-card__location").First().Text()),
			URL:         link,
			Posted:      posted.AttrOr("datetime", cleanText(posted.Text())),
			Salary:      cleanText(card.Find(".job-search-card__salary-info").First().Text()),
			Description: cleanText(card.Find(".job-search-card__snippet").First().Text()),
		})
	})

	return jobs, skipped
}

func linkedInCard(s *goquery.Selection) *goquery.Selection {
	if card := s.Closest("li"); card.Length() > 0 {
		return card
	}
	if card := s.Closest("div.base-card"); card.Length() > 0 {
		return card
	}
	return s.Parent()
}

func linkedInJobID(card *goquery.Selection, link string) string {
	urn := card.AttrOr("data-entity-urn", "")
	if urn == "" {
		urn = card.Find("[data-entity-urn]").First().AttrOr("data-entity-urn", "")
	}
	if idx := strings.LastIndex(urn, ":"); idx >= 0 && idx < len(urn)-1 {
		return urn[idx+1:]
	}
	return numericIDFromURL(link)
}

// Enrich fetches the job detail page for the full description, the
// employment type and the employer's application link.
func (l *LinkedIn) Enrich(ctx context.Context, fetcher Fetcher, raw RawJob) RawJob {
	target := linkedInDetailURL(raw.URL)
	if raw.ID != "" {
		target = linkedInDetailAPI + raw.ID
	}
	if target == "" {
		return raw
	}
	resp, err := fetcher.Get(ctx, target, linkedInHeaders)
	if err != nil || resp.Status < 200 || resp.Status >= 300 {
		return raw
	}
	doc, err := parseDocument(resp.Body)
	if err != nil {
		return raw
	}
	if description := parseLinkedInDescription(doc); description != "" {
		raw.Description = description
		raw.DescriptionHTML = true
	}
	if jobType := parseLinkedInCriteria(doc, "employment type"); jobType != "" {
		raw.JobType = jobType
	}
	if direct := parseLinkedInApplyURL(doc); direct != "" {
		raw.DirectURL = direct
	}
	return raw
}

func linkedInDetailURL(jobURL string) string {
	id := numericIDFromURL(jobURL)
	if id == "" {
		return ""
	}
	return linkedInDetailAPI + id
}

func parseLinkedInDescription(doc *goquery.Document) string {
	markup := doc.Find(".show-more-less-html__markup").First()
	if markup.Length() == 0 {
		markup = doc.Find(".description__text").First()
	}
	content, err := markup.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(content)
}

func parseLinkedInCriteria(doc *goquery.Document, name string) string {
	var value string
	doc.Find(".description__job-criteria-item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		header := strings.ToLower(cleanText(s.Find(".description__job-criteria-subheader").Text()))
		if !strings.Contains(header, name) {
			return true
		}
		value = cleanText(s.Find(".description__job-criteria-text").Text())
		return false
	})
	return value
}

func parseLinkedInApplyURL(doc *goquery.Document) string {
	content, err := doc.Find("code#applyUrl").Html()
	if err != nil || content == "" {
		return ""
	}
	m := linkedInApplyURL.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	direct, err := url.QueryUnescape(m[1])
	if err != nil {
		return ""
	}
	return direct
}
