package scraper

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
)

const (
	indeedPageSize     = 10
	indeedMosaicMarker = `window.mosaic.providerData["mosaic-provider-jobcards"]=`
)

var indeedCurrencies = map[string]string{
	"":    "USD",
	"us":  "USD",
	"usa": "USD",
	"uk":  "GBP",
	"gb":  "GBP",
	"ca":  "CAD",
	"au":  "AUD",
	"in":  "INR",
	"br":  "BRL",
	"de":  "EUR",
	"fr":  "EUR",
	"es":  "EUR",
	"it":  "EUR",
	"nl":  "EUR",
	"at":  "EUR",
	"ie":  "EUR",
	"pt":  "EUR",
}

var indeedJobTypes = map[models.JobType]string{
	models.JobTypeFullTime:   "fulltime",
	models.JobTypePartTime:   "parttime",
	models.JobTypeContract:   "contract",
	models.JobTypeInternship: "internship",
	models.JobTypeTemporary:  "temporary",
}

// Indeed reads the search results page, preferring the embedded mosaic
// provider JSON over the rendered job cards.
type Indeed struct{}

func NewIndeed() *Indeed {
	return &Indeed{}
}

func (i *Indeed) Site() models.Site {
	return models.SiteIndeed
}

func (i *Indeed) Profile() Profile {
	return Profile{
		DefaultInterval: models.IntervalYearly,
		IDPrefix:        "in-",
		Delay:           2 * time.Second,
		MaxRequests:     DefaultMaxRequests,
	}
}

func (i *Indeed) Strategies(in models.ScraperInput) []Strategy {
	return []Strategy{{
		Name: "search",
		URL:  func(page int) string { return buildIndeedURL(in, page) },
		Headers: map[string]string{
			"accept-language": "en-US,en;q=0.9",
		},
	}}
}

func buildIndeedURL(in models.ScraperInput, page int) string {
	values := url.Values{}
	values.Set("q", in.SearchTerm)
	if in.Location != "" {
		values.Set("l", in.Location)
	}
	if page > 0 {
		values.Set("start", strconv.Itoa(page*indeedPageSize))
	}
	if jt, ok := indeedJobTypes[in.JobType]; ok {
		values.Set("jt", jt)
	}
	if in.RemoteOnly {
		values.Set("sc", "0kf:attr(DSQF7);")
	}
	if in.HoursOld > 0 {
		days := int(math.Ceil(float64(in.HoursOld) / 24.0))
		values.Set("fromage", strconv.Itoa(max(days, 1)))
	}
	return fmt.Sprintf("%s/jobs?%s", baseIndeedURL(in.Country), values.Encode())
}

func baseIndeedURL(country string) string {
	country = strings.TrimSpace(strings.ToLower(country))
	if country == "" || country == "usa" || country == "us" {
		return "https://www.indeed.com"
	}
	return fmt.Sprintf("https://%s.indeed.com", country)
}

func (i *Indeed) Extract(page Page) Extraction {
	base := baseIndeedURL(page.Input.Country)
	currency := indeedCurrencies[strings.ToLower(strings.TrimSpace(page.Input.Country))]
	if currency == "" {
		currency = "USD"
	}

	if results, ok := indeedMosaicResults(page.Body); ok {
		jobs, skipped := indeedJobsFromMosaic(results, base, currency)
		return Extraction{Jobs: jobs, Skipped: skipped, Final: !indeedHasNextPage(page.Body)}
	}

	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}
	jobs, skipped := parseIndeedCards(doc, base)
	return Extraction{
		Jobs:    jobs,
		Skipped: skipped,
		Final:   doc.Find("a[data-testid='pagination-page-next']").Length() == 0,
	}
}

func indeedHasNextPage(body []byte) bool {
	return strings.Contains(string(body), `data-testid="pagination-page-next"`) ||
		strings.Contains(string(body), `data-testid='pagination-page-next'`)
}

type indeedMosaicResult struct {
	JobKey                string   `json:"jobkey"`
	Title                 string   `json:"title"`
	Company               string   `json:"company"`
	FormattedLocation     string   `json:"formattedLocation"`
	Snippet               string   `json:"snippet"`
	FormattedRelativeTime string   `json:"formattedRelativeTime"`
	PubDate               int64    `json:"pubDate"`
	RemoteLocation        bool     `json:"remoteLocation"`
	JobTypes              []string `json:"jobTypes"`
	SalarySnippet         struct {
		Text string `json:"text"`
	} `json:"salarySnippet"`
	ExtractedSalary *struct {
		Min  float64 `json:"min"`
		Max  float64 `json:"max"`
		Type string  `json:"type"`
	} `json:"extractedSalary"`
	ThirdPartyApplyURL string `json:"thirdPartyApplyUrl"`
}

func indeedMosaicResults(body []byte) ([]indeedMosaicResult, bool) {
	text := string(body)
	idx := strings.Index(text, indeedMosaicMarker)
	if idx < 0 {
		return nil, false
	}

	var payload struct {
		MetaData struct {
			Model struct {
				Results []indeedMosaicResult `json:"results"`
			} `json:"mosaicProviderJobCardsModel"`
		} `json:"metaData"`
	}
	dec := json.NewDecoder(strings.NewReader(text[idx+len(indeedMosaicMarker):]))
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}
	return payload.MetaData.Model.Results, true
}

func indeedJobsFromMosaic(results []indeedMosaicResult, base, currency string) ([]RawJob, int) {
	jobs := make([]RawJob, 0, len(results))
	skipped := 0
	for _, result := range results {
		if result.JobKey == "" || strings.TrimSpace(result.Title) == "" {
			skipped++
			continue
		}
		job := RawJob{
			ID:              result.JobKey,
			Title:           result.Title,
			Company:         result.Company,
			Location:        result.FormattedLocation,
			JobType:         strings.Join(result.JobTypes, ", "),
			URL:             base + "/viewjob?jk=" + result.JobKey,
			DirectURL:       result.ThirdPartyApplyURL,
			Description:     result.Snippet,
			DescriptionHTML: true,
			Posted:          result.FormattedRelativeTime,
			Salary:          result.SalarySnippet.Text,
		}
		if result.PubDate > 0 {
			job.Posted = strconv.FormatInt(result.PubDate, 10)
		}
		if result.RemoteLocation {
			job.Remote = boolPtr(true)
		}
		if s := result.ExtractedSalary; s != nil && s.Min > 0 {
			job.Compensation = &models.Compensation{
				Interval:  indeedInterval(s.Type),
				MinAmount: s.Min,
				MaxAmount: math.Max(s.Min, s.Max),
				Currency:  currency,
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, skipped
}

func indeedInterval(value string) models.Interval {
	switch strings.ToLower(value) {
	case "hourly":
		return models.IntervalHourly
	case "daily":
		return models.IntervalDaily
	case "weekly":
		return models.IntervalWeekly
	case "monthly":
		return models.IntervalMonthly
	default:
		return models.IntervalYearly
	}
}

func parseIndeedCards(doc *goquery.Document, base string) ([]RawJob, int) {
	var jobs []RawJob
	skipped := 0
	seen := map[string]struct{}{}

	doc.Find("a.tapItem, div.job_seen_beacon").Each(func(_ int, s *goquery.Selection) {
		anchor := s
		if goquery.NodeName(s) != "a" {
			anchor = s.Find("h2.jobTitle a").First()
		}
		link := absoluteURL(base, strings.TrimSpace(anchor.AttrOr("href", "")))
		key := anchor.AttrOr("data-jk", "")
		if key == "" {
			if parsed, err := url.Parse(link); err == nil {
				key = parsed.Query().Get("jk")
			}
		}
		if key != "" {
			link = base + "/viewjob?jk=" + key
		}

		title := cleanText(s.Find("h2.jobTitle span").First().Text())
		if title == "" || link == "" {
			skipped++
			return
		}
		dedup := key
		if dedup == "" {
			dedup = link
		}
		if _, ok := seen[dedup]; ok {
			return
		}
		seen[dedup] = struct{}{}

		jobs = append(jobs, RawJob{
			ID:          key,
			Title:       title,
			Company:     cleanText(s.Find("span.companyName, [data-testid='company-name']").First().Text()),
			Location:    cleanText(s.Find("div.companyLocation, [data-testid='text-location']").First().Text()),
			URL:         link,
			Description: cleanText(s.Find("div.job-snippet").Text()),
			Posted:      cleanText(s.Find("span.date").First().Text()),
			Salary:      cleanText(s.Find(".salary-snippet-container, [data-testid='attribute_snippet_testid']").First().Text()),
		})
	})

	return jobs, skipped
}
