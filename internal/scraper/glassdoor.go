package scraper

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
)

// Glassdoor reads JSON-LD postings and the react job listing cards.
type Glassdoor struct{}

func NewGlassdoor() *Glassdoor {
	return &Glassdoor{}
}

func (g *Glassdoor) Site() models.Site {
	return models.SiteGlassdoor
}

func (g *Glassdoor) Profile() Profile {
	return Profile{
		DefaultInterval: models.IntervalYearly,
		IDPrefix:        "gd-",
		Delay:           2 * time.Second,
		MaxRequests:     DefaultMaxRequests,
	}
}

func (g *Glassdoor) Strategies(in models.ScraperInput) []Strategy {
	return []Strategy{{
		Name: "search",
		URL:  func(page int) string { return buildGlassdoorURL(in, page) },
	}}
}

func buildGlassdoorURL(in models.ScraperInput, page int) string {
	values := url.Values{}
	values.Set("sc.keyword", in.SearchTerm)
	if in.Location != "" {
		values.Set("locKeyword", in.Location)
	}
	if in.HoursOld > 0 {
		days := int(math.Ceil(float64(in.HoursOld) / 24.0))
		values.Set("fromAge", strconv.Itoa(max(days, 1)))
	}
	if in.RemoteOnly {
		values.Set("remoteWorkType", "1")
	}
	if page > 0 {
		values.Set("p", strconv.Itoa(page+1))
	}
	return fmt.Sprintf("%s/Job/jobs.htm?%s", glassdoorBase(in.Country), values.Encode())
}

var glassdoorHosts = map[string]string{
	"uk":             "www.glassdoor.co.uk",
	"united kingdom": "www.glassdoor.co.uk",
	"germany":        "www.glassdoor.de",
	"france":         "www.glassdoor.fr",
	"canada":         "www.glassdoor.ca",
	"australia":      "www.glassdoor.com.au",
	"india":          "www.glassdoor.co.in",
	"brazil":         "www.glassdoor.com.br",
	"spain":          "www.glassdoor.es",
	"netherlands":    "www.glassdoor.nl",
}

// glassdoorBase maps a country name to its Glassdoor domain; unknown
// countries use glassdoor.com.
func glassdoorBase(country string) string {
	host, ok := glassdoorHosts[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		host = "www.glassdoor.com"
	}
	return "https://" + host
}

func (g *Glassdoor) Extract(page Page) Extraction {
	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}

	jobs := parseJSONLDJobs(doc)
	cards, skipped := parseGlassdoorJobs(doc)
	jobs = append(jobs, cards...)

	seen := map[string]struct{}{}
	out := jobs[:0]
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = glassdoorJobID(job.URL)
		}
		key := job.ID
		if key == "" {
			key = job.URL
		}
		if key != "" {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, job)
	}

	final := doc.Find("[data-test='pagination-next'], button[data-test='load-more']").Length() == 0
	return Extraction{Jobs: out, Skipped: skipped, Final: final}
}

func glassdoorJobID(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if id := parsed.Query().Get("jobListingId"); id != "" {
		return id
	}
	if id := parsed.Query().Get("jl"); id != "" {
		return id
	}
	return numericIDFromURL(link)
}

func parseGlassdoorJobs(doc *goquery.Document) ([]RawJob, int) {
	var jobs []RawJob
	skipped := 0

	doc.Find(".react-job-listing, li[data-test='jobListing']").Each(func(_ int, s *goquery.Selection) {
		title := cleanText(s.Find(".jobLink").First().Text())
		if title == "" {
			title = cleanText(s.Find("[data-test='job-title']").First().Text())
		}

		company := cleanText(s.Find(".jobEmployerName").First().Text())
		if company == "" {
			company = cleanText(s.Find("[data-test='employer-name']").First().Text())
		}

		location := cleanText(s.Find(".jobLocation").First().Text())
		if location == "" {
			location = cleanText(s.Find("[data-test='emp-location']").First().Text())
		}

		link := s.Find("a.jobLink, a[data-test='job-link']").First().AttrOr("href", "")
		link = absoluteURL("https://www.glassdoor.com", link)

		if title == "" || link == "" {
			skipped++
			return
		}

		id := s.AttrOr("data-id", s.AttrOr("data-jobid", ""))
		jobs = append(jobs, RawJob{
			ID:       id,
			Title:    title,
			Company:  company,
			Location: location,
			URL:      link,
			Salary:   cleanText(s.Find(".salarySnippet, [data-test='detailSalary']").First().Text()),
			Posted:   cleanText(s.Find("[data-test='job-age']").First().Text()),
		})
	})

	return jobs, skipped
}
