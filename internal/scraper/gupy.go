package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

const (
	gupyAPIURL      = "https://employability-portal.gupy.io/api/v1/jobs"
	gupyPortalURL   = "https://portal.gupy.io"
	gupyMaxPageSize = 50
)

var (
	gupyHeaders = map[string]string{
		"accept":          "application/json",
		"accept-language": "pt-BR,pt;q=0.9,en;q=0.8",
	}
	gupyPortalHeaders = map[string]string{
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language": "pt-BR,pt;q=0.9,en;q=0.8",
	}

	gupyCardClass     = regexp.MustCompile(`(?i)job|vaga|position`)
	gupyTitleClass    = regexp.MustCompile(`(?i)title|titulo|cargo`)
	gupyCompanyClass  = regexp.MustCompile(`(?i)company|empresa|empregador`)
	gupyLocationClass = regexp.MustCompile(`(?i)location|local|cidade`)
	gupyWorkClass     = regexp.MustCompile(`(?i)remote|presencial|hibrido|work`)
	gupyDateClass     = regexp.MustCompile(`(?i)date|data|tempo`)
)

// Gupy field names differ between API versions; the first non-empty alias wins.
var gupyAliases = map[string][]string{
	"id":          {"id", "jobId"},
	"title":       {"name", "title", "jobName"},
	"company":     {"careerPageName", "companyName", "company"},
	"direct":      {"careerPageUrl", "companyUrl"},
	"url":         {"jobUrl", "url", "job_url"},
	"description": {"description", "jobDescription"},
	"published":   {"publishedDate", "published_date", "createdAt"},
	"city":        {"city"},
	"state":       {"state"},
	"country":     {"country"},
	"type":        {"type", "jobType"},
	"workplace":   {"workplaceType", "workplace_type"},
}

// Gupy reads the Gupy employability portal API, with the portal search page
// as a fallback.
type Gupy struct{}

func NewGupy() *Gupy {
	return &Gupy{}
}

func (g *Gupy) Site() models.Site {
	return models.SiteGupy
}

func (g *Gupy) Profile() Profile {
	return Profile{
		DefaultCountry:  "Brasil",
		DefaultInterval: models.IntervalMonthly,
		IDPrefix:        "gupy-",
		Delay:           2 * time.Second,
		MaxRequests:     10,
	}
}

func (g *Gupy) Strategies(in models.ScraperInput) []Strategy {
	limit := gupyPageSize(in)
	return []Strategy{
		{
			Name:    "api",
			URL:     func(page int) string { return buildGupyAPIURL(in.SearchTerm, limit, page*limit) },
			Headers: gupyHeaders,
		},
		{
			Name:     "portal",
			MaxPages: 1,
			URL: func(int) string {
				return gupyPortalURL + "/job-search/term=" + url.PathEscape(in.SearchTerm)
			},
			Headers: gupyPortalHeaders,
		},
	}
}

func gupyPageSize(in models.ScraperInput) int {
	if in.ResultsWanted <= 0 {
		return gupyMaxPageSize
	}
	return min(gupyMaxPageSize, in.ResultsWanted)
}

func buildGupyAPIURL(term string, limit, offset int) string {
	values := url.Values{}
	values.Set("jobName", term)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("offset", strconv.Itoa(offset))
	return gupyAPIURL + "?" + values.Encode()
}

func (g *Gupy) Extract(page Page) Extraction {
	trimmed := bytes.TrimSpace(page.Body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return extractGupyAPI(page, trimmed)
	}
	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}
	return filterGupyLocation(page.Input.Location, parseGupyHTML(doc))
}

type gupyResponse struct {
	Data       []map[string]any `json:"data"`
	Pagination struct {
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
		Total  int `json:"total"`
	} `json:"pagination"`
}

func extractGupyAPI(page Page, body []byte) Extraction {
	var resp gupyResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return Extraction{Err: fmt.Errorf("decode gupy response: %w", err)}
	}

	ex := Extraction{}
	for _, item := range resp.Data {
		job, ok := gupyJobFromAPI(item)
		if !ok {
			ex.Rejected++
			continue
		}
		ex.Jobs = append(ex.Jobs, job)
	}

	ex = filterGupyLocation(page.Input.Location, ex)
	limit := gupyPageSize(page.Input)
	seen := page.Index*limit + len(resp.Data)
	ex.Final = len(resp.Data) == 0 || (resp.Pagination.Total > 0 && seen >= resp.Pagination.Total)
	return ex
}

func gupyField(item map[string]any, name string) string {
	return firstString(item, gupyAliases[name]...)
}

func gupyJobFromAPI(item map[string]any) (RawJob, bool) {
	job := RawJob{
		ID:          gupyField(item, "id"),
		Title:       gupyField(item, "title"),
		Company:     gupyField(item, "company"),
		DirectURL:   gupyField(item, "direct"),
		URL:         gupyField(item, "url"),
		Description: gupyField(item, "description"),
		Posted:      gupyField(item, "published"),
		City:        gupyField(item, "city"),
		State:       gupyField(item, "state"),
		Country:     gupyField(item, "country"),
		JobType:     gupyField(item, "type"),
	}
	if job.Title == "" || (job.Company == "" && job.URL == "") {
		return RawJob{}, false
	}

	remote, _ := boolValue(item["isRemoteWork"])
	switch strings.ToLower(gupyField(item, "workplace")) {
	case "remote", "remoto":
		remote = true
	}
	job.Remote = boolPtr(remote)
	return job, true
}

// filterGupyLocation applies the search location client side, since the API
// has no location parameter. Country wide searches accept everything.
func filterGupyLocation(location string, ex Extraction) Extraction {
	wanted := normalize.Fold(strings.TrimSpace(location))
	if wanted == "" || wanted == "brasil" || wanted == "brazil" {
		return ex
	}
	kept := ex.Jobs[:0]
	for _, job := range ex.Jobs {
		place := normalize.Fold(strings.Join([]string{job.City, job.State, job.Location}, " "))
		if strings.Contains(place, wanted) {
			kept = append(kept, job)
			continue
		}
		ex.Filtered++
	}
	ex.Jobs = kept
	return ex
}

func parseGupyHTML(doc *goquery.Document) Extraction {
	ex := Extraction{}
	seen := map[string]struct{}{}

	matchesClass(doc.Selection, "div, article, section", gupyCardClass).Each(func(_ int, card *goquery.Selection) {
		title := matchesClass(card, "h1, h2, h3, h4", gupyTitleClass).First()
		if title.Length() == 0 {
			title = matchesClass(card, "a", gupyCardClass).First()
		}
		link := absoluteURL(gupyPortalURL, strings.TrimSpace(card.Find("a[href]").First().AttrOr("href", "")))

		job := RawJob{
			ID:       numericIDFromURL(link),
			Title:    cleanText(title.Text()),
			Company:  cleanText(matchesClass(card, "span, div, p", gupyCompanyClass).First().Text()),
			Location: cleanText(matchesClass(card, "span, div, p", gupyLocationClass).First().Text()),
			URL:      link,
			JobType:  cleanText(matchesClass(card, "span, div", gupyWorkClass).First().Text()),
			Posted:   cleanText(matchesClass(card, "span, time", gupyDateClass).First().Text()),
		}
		if job.Title == "" || (job.Company == "" && job.URL == "") {
			ex.Skipped++
			return
		}
		key := job.URL
		if key == "" {
			key = job.Title + "|" + job.Company
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if normalize.HasRemoteKeyword(job.JobType) {
			job.Remote = boolPtr(true)
		}
		ex.Jobs = append(ex.Jobs, job)
	})

	ex.Final = true
	return ex
}

func matchesClass(scope *goquery.Selection, selector string, pattern *regexp.Regexp) *goquery.Selection {
	return scope.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return pattern.MatchString(s.AttrOr("class", ""))
	})
}
