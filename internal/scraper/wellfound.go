package scraper

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

const (
	wellfoundBaseURL  = "https://wellfound.com"
	wellfoundPageSize = 25
)

var wellfoundLocations = map[string]string{
	"porto, portugal":        "porto",
	"lisbon, portugal":       "lisbon",
	"lisboa, portugal":       "lisbon",
	"portugal":               "portugal",
	"madrid, spain":          "madrid",
	"barcelona, spain":       "barcelona",
	"spain":                  "spain",
	"europe":                 "europe",
	"western europe":         "europe",
	"european union":         "europe",
	"remote":                 "remote",
	"worldwide":              "remote",
	"global":                 "remote",
	"berlin, germany":        "berlin",
	"paris, france":          "paris",
	"amsterdam, netherlands": "amsterdam",
	"london, uk":             "london",
	"milan, italy":           "milan",
	"stockholm, sweden":      "stockholm",
	"copenhagen, denmark":    "copenhagen",
	"zurich, switzerland":    "zurich",
}

var wellfoundRoles = map[string]string{
	"product owner":             "product-manager",
	"product manager":           "product-manager",
	"senior product manager":    "product-manager",
	"product management":        "product-manager",
	"software engineer":         "software-engineer",
	"software developer":        "software-engineer",
	"full stack developer":      "software-engineer",
	"backend developer":         "software-engineer",
	"frontend developer":        "frontend-engineer",
	"front end developer":       "frontend-engineer",
	"data scientist":            "data-scientist",
	"data engineer":             "data-engineer",
	"machine learning engineer": "machine-learning-engineer",
	"ml engineer":               "machine-learning-engineer",
	"devops engineer":           "devops-engineer",
	"site reliability engineer": "devops-engineer",
	"infrastructure engineer":   "devops-engineer",
	"ux designer":               "designer",
	"ui designer":               "designer",
	"product designer":          "designer",
	"graphic designer":          "designer",
	"marketing manager":         "marketing",
	"digital marketing":         "marketing",
	"growth manager":            "marketing",
	"sales manager":             "sales",
	"account manager":           "sales",
	"business development":      "sales",
}

// Ordered: the first category sharing a word with the search term wins.
var wellfoundCategories = []string{
	"software-engineer", "product-manager", "designer", "data-scientist", "marketing",
	"sales", "devops-engineer", "frontend-engineer", "backend-engineer", "mobile-engineer",
	"security-engineer", "data-engineer", "machine-learning-engineer", "growth",
	"operations", "finance", "legal", "hr", "customer-success",
}

var (
	wellfoundJobHref      = regexp.MustCompile(`/jobs/(\d+)-`)
	wellfoundSlugStrip    = regexp.MustCompile(`[^\w\s-]`)
	wellfoundSlugSpace    = regexp.MustCompile(`[\s-]+`)
	wellfoundPageOf       = regexp.MustCompile(`Page\s*(?:<!--[^>]*-->\s*)*(\d+)\s*(?:<!--[^>]*-->\s*)*of\s*(?:<!--[^>]*-->\s*)*(\d+)`)
	wellfoundResultsTotal = regexp.MustCompile(`(\d[\d,]*)\s+results\s+total`)
	wellfoundCompanyClass = regexp.MustCompile(`(?i)font-semibold|company`)
	wellfoundBadgeClass   = regexp.MustCompile(`(?i)accent-yellow|bg-accent`)
	wellfoundPlaceText    = regexp.MustCompile(`(?i)porto|lisbon|remote|europe|berlin|madrid|barcelona`)
	wellfoundSalaryText   = regexp.MustCompile(`[$€£]\s*\d`)
)

var wellfoundScriptMarkers = []string{
	"window.__INITIAL_STATE__",
	"window.jobData",
	"window.searchResults",
}

var wellfoundJSONPaths = []string{
	"props.pageProps.jobs",
	"props.initialState.jobs",
	"jobs",
	"data.jobs",
	"searchResults.jobs",
}

var wellfoundJobTypes = map[string]struct{}{
	"full-time": {}, "part-time": {}, "contract": {}, "internship": {},
}

// Wellfound reads role and remote listing pages.
type Wellfound struct{}

func NewWellfound() *Wellfound {
	return &Wellfound{}
}

func (w *Wellfound) Site() models.Site {
	return models.SiteWellfound
}

func (w *Wellfound) Profile() Profile {
	return Profile{
		DefaultInterval: models.IntervalYearly,
		IDPrefix:        "wf-",
		Delay:           2 * time.Second,
		MaxRequests:     DefaultMaxRequests,
	}
}

// Strategies starts with the role and location listing, then falls back to
// the European, remote and location-free listings of the same role.
func (w *Wellfound) Strategies(in models.ScraperInput) []Strategy {
	role := wellfoundRole(in.SearchTerm)
	primary := wellfoundSearchURL(role, wellfoundLocation(in.Location))

	candidates := []struct {
		name string
		base string
	}{
		{"europe", wellfoundBaseURL + "/role/l/" + role + "/europe"},
		{"remote", wellfoundBaseURL + "/remote/" + role + "-jobs"},
		{"role", wellfoundBaseURL + "/role/" + role},
	}

	strategies := []Strategy{wellfoundStrategy("search", primary, 0)}
	seen := map[string]struct{}{primary: {}}
	for _, c := range candidates {
		if _, ok := seen[c.base]; ok {
			continue
		}
		seen[c.base] = struct{}{}
		strategies = append(strategies, wellfoundStrategy(c.name, c.base, 3))
	}
	return strategies
}

func wellfoundStrategy(name, base string, maxPages int) Strategy {
	return Strategy{
		Name:     name,
		MaxPages: maxPages,
		URL: func(page int) string {
			if page == 0 {
				return base
			}
			return base + "?page=" + strconv.Itoa(page+1)
		},
		Headers: map[string]string{"accept-language": "en-US,en;q=0.9"},
	}
}

func wellfoundSearchURL(role, location string) string {
	if location == "remote" {
		return wellfoundBaseURL + "/remote/" + role + "-jobs"
	}
	return wellfoundBaseURL + "/role/l/" + role + "/" + location
}

func wellfoundSlug(value string) string {
	value = wellfoundSlugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
	return strings.Trim(wellfoundSlugSpace.ReplaceAllString(value, "-"), "-")
}

// wellfoundRole maps a search term onto one of Wellfound's role categories.
func wellfoundRole(term string) string {
	key := strings.ToLower(strings.Join(strings.Fields(term), " "))
	if key == "" {
		return "software-engineer"
	}
	if role, ok := wellfoundRoles[key]; ok {
		return role
	}
	slug := wellfoundSlug(term)
	for _, category := range wellfoundCategories {
		if slug == category {
			return category
		}
	}
	for _, category := range wellfoundCategories {
		for _, word := range strings.Split(category, "-") {
			if strings.Contains(slug, word) {
				return category
			}
		}
	}
	return "software-engineer"
}

func wellfoundLocation(location string) string {
	key := strings.ToLower(strings.Join(strings.Fields(location), " "))
	if key == "" {
		return "europe"
	}
	if slug, ok := wellfoundLocations[key]; ok {
		return slug
	}
	if strings.Contains(key, "remote") {
		return "remote"
	}
	return wellfoundSlug(location)
}

func (w *Wellfound) Extract(page Page) Extraction {
	doc, err := parseDocument(page.Body)
	if err != nil {
		return Extraction{Err: err}
	}

	jobs := wellfoundJSONJobs(doc)
	skipped := 0
	if len(jobs) == 0 {
		if !wellfoundHasListings(page.Body) {
			return Extraction{Final: true, Reason: "no listing content"}
		}
		jobs, skipped = parseWellfoundAnchors(doc)
	}

	current, total, ok := wellfoundPagination(string(page.Body), page.Index)
	return Extraction{
		Jobs:    jobs,
		Skipped: skipped,
		Final:   !ok || current >= total,
	}
}

// wellfoundHasListings reports whether a rendered search page carries a
// result count and at least one job card marker. Challenge pages and empty
// shells have neither.
func wellfoundHasListings(body []byte) bool {
	if !bytes.Contains(body, []byte("results total")) {
		return false
	}
	return bytes.Contains(body, []byte("Actively Hiring")) || bytes.Contains(body, []byte("company logo"))
}

// wellfoundPagination reads "Page X of Y", falling back to an estimate from
// "N results total".
func wellfoundPagination(body string, index int) (current, total int, ok bool) {
	if m := wellfoundPageOf.FindStringSubmatch(body); m != nil {
		current, _ = strconv.Atoi(m[1])
		total, _ = strconv.Atoi(m[2])
		return current, total, total > 0
	}
	if m := wellfoundResultsTotal.FindStringSubmatch(body); m != nil {
		results, _ := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		pages := max(1, int(math.Ceil(float64(results)/wellfoundPageSize)))
		return index + 1, pages, true
	}
	return 0, 0, false
}

func wellfoundJSONJobs(doc *goquery.Document) []RawJob {
	var jobs []RawJob
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data, ok := wellfoundScriptData(s)
		if !ok {
			return true
		}
		for _, path := range wellfoundJSONPaths {
			list, ok := pathValue(data, path).([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if entry, ok := item.(map[string]any); ok {
					if job, ok := wellfoundJobFromJSON(entry); ok {
						jobs = append(jobs, job)
					}
				}
			}
			return false
		}
		return true
	})
	return jobs
}

func wellfoundScriptData(s *goquery.Selection) (any, bool) {
	content := strings.TrimSpace(s.Text())
	if content == "" {
		return nil, false
	}

	var payload string
	if s.AttrOr("id", "") == "__NEXT_DATA__" {
		payload = content
	} else {
		for _, marker := range wellfoundScriptMarkers {
			idx := strings.Index(content, marker)
			if idx < 0 {
				continue
			}
			rest := content[idx+len(marker):]
			eq := strings.Index(rest, "=")
			if eq < 0 {
				continue
			}
			payload = rest[eq+1:]
			break
		}
	}
	if payload == "" {
		return nil, false
	}

	var data any
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(&data); err != nil {
		return nil, false
	}
	return data, true
}

func wellfoundJobFromJSON(item map[string]any) (RawJob, bool) {
	job := RawJob{
		Title:       firstString(item, "title", "jobTitle", "name", "position"),
		Company:     firstString(item, "company", "companyName", "startup", "organization"),
		Description: firstString(item, "description", "summary", "details"),
		Salary:      firstString(item, "salary", "compensation", "pay", "wage"),
		URL:         absoluteURL(wellfoundBaseURL, firstString(item, "url", "link", "jobUrl", "permalink")),
		JobType:     firstString(item, "jobType", "type"),
	}
	for _, key := range []string{"location", "locationNames", "city", "region", "area"} {
		if value := joinValues(item[key]); value != "" {
			job.Location = value
			break
		}
	}
	job.ID = wellfoundJobID(job.URL)
	if job.ID == "" {
		job.ID = stringValue(item["id"])
	}
	if remote, ok := boolValue(item["remote"]); ok {
		job.Remote = boolPtr(remote)
	}
	if job.Title == "" && job.Company == "" {
		return RawJob{}, false
	}
	return job, true
}

// wellfoundJobID is the numeric ID embedded in /jobs/<id>-<slug> URLs. It is
// the canonical identity of a Wellfound posting.
func wellfoundJobID(link string) string {
	m := wellfoundJobHref.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseWellfoundAnchors(doc *goquery.Document) ([]RawJob, int) {
	var jobs []RawJob
	skipped := 0
	seen := map[string]struct{}{}

	doc.Find("a[href*='/jobs/']").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		id := wellfoundJobID(href)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		title := cleanText(s.Text())
		if title == "" {
			skipped++
			return
		}
		location, jobType, salary := wellfoundDetails(s)
		jobs = append(jobs, RawJob{
			ID:       id,
			Title:    title,
			Company:  wellfoundCompany(s),
			Location: location,
			JobType:  jobType,
			Salary:   salary,
			URL:      absoluteURL(wellfoundBaseURL, href),
		})
	})

	return jobs, skipped
}

// wellfoundCompany walks up to ten enclosing divs looking for the company
// block that groups a startup's open roles.
func wellfoundCompany(anchor *goquery.Selection) string {
	for _, parent := range ancestors(anchor, 10) {
		if goquery.NodeName(parent) != "div" {
			continue
		}
		var name string
		parent.Find("a[href*='/company/']").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if text := cleanText(link.Text()); text != "" {
				name = text
				return false
			}
			if text := cleanText(link.Find("h2").First().Text()); text != "" {
				name = text
				return false
			}
			return true
		})
		if name != "" {
			return name
		}
		parent.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if !wellfoundCompanyClass.MatchString(h.AttrOr("class", "")) {
				return true
			}
			if text := cleanText(h.Text()); text != "" && len(text) < 100 {
				name = text
				return false
			}
			return true
		})
		if name != "" {
			return name
		}
	}
	return ""
}

// wellfoundDetails reads location, job type and salary badges from the
// nearest five containers around a job link, stopping at the first container
// that also holds another posting.
func wellfoundDetails(anchor *goquery.Selection) (location, jobType, salary string) {
	id := wellfoundJobID(anchor.AttrOr("href", ""))
	for _, container := range ancestors(anchor, 5) {
		if wellfoundHoldsOtherJob(container, id) {
			break
		}
		container.Find("span").Each(func(_ int, span *goquery.Selection) {
			if span.Children().Length() > 0 {
				return
			}
			text := cleanText(span.Text())
			if text == "" {
				return
			}
			if location == "" && (wellfoundPlaceText.MatchString(text) || (span.HasClass("pl-1") && normalize.IsCountry(text))) {
				location = text
			}
			if jobType == "" && wellfoundBadgeClass.MatchString(span.AttrOr("class", "")) {
				if _, ok := wellfoundJobTypes[strings.ToLower(text)]; ok {
					jobType = text
				}
			}
			if salary == "" && wellfoundSalaryText.MatchString(text) {
				salary = text
			}
		})
		if location != "" && jobType != "" && salary != "" {
			break
		}
	}
	return location, jobType, salary
}

func wellfoundHoldsOtherJob(container *goquery.Selection, id string) bool {
	other := false
	container.Find("a[href*='/jobs/']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if found := wellfoundJobID(a.AttrOr("href", "")); found != "" && found != id {
			other = true
			return false
		}
		return true
	})
	return other
}
