package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

var (
	trailingNumericID = regexp.MustCompile(`(\d{6,})(?:[/?#]|$)`)
	errEmptyDocument  = fmt.Errorf("%w: empty document", ErrPageAbort)
)

func parseDocument(body []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyDocument
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func cleanText(value string) string {
	return normalize.CleanText(value)
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// numericIDFromURL returns the trailing numeric identifier of a job detail
// URL such as /jobs/view/backend-engineer-4361039203.
func numericIDFromURL(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		rawURL = parsed.Path
	}
	m := trailingNumericID.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ancestors returns up to depth parents of s, nearest first.
func ancestors(s *goquery.Selection, depth int) []*goquery.Selection {
	var out []*goquery.Selection
	for current := s.Parent(); current.Length() > 0 && len(out) < depth; current = current.Parent() {
		if goquery.NodeName(current) == "body" || goquery.NodeName(current) == "html" {
			break
		}
		out = append(out, current)
	}
	return out
}

func parseJSONLDJobs(doc *goquery.Document) []RawJob {
	var jobs []RawJob
	seen := map[string]struct{}{}

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		data, err := decodeJSONLD(raw)
		if err != nil {
			return
		}

		for _, job := range extractJobsFromJSONLD(data) {
			key := job.URL
			if key == "" {
				key = strings.ToLower(job.Title + "|" + job.Company + "|" + job.Location)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			jobs = append(jobs, job)
		}
	})

	return jobs
}

func decodeJSONLD(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<!--")
	raw = strings.TrimSuffix(raw, "-->")
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "\u2028", "")
	raw = strings.ReplaceAll(raw, "\u2029", "")

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func extractJobsFromJSONLD(data any) []RawJob {
	var jobs []RawJob

	switch value := data.(type) {
	case []any:
		for _, item := range value {
			jobs = append(jobs, extractJobsFromJSONLD(item)...)
		}
	case map[string]any:
		switch strings.ToLower(stringValue(value["@type"], value["type"])) {
		case "jobposting":
			return append(jobs, jobFromJobPosting(value))
		case "itemlist":
			jobs = append(jobs, jobsFromItemList(value)...)
		}
		if graph, ok := value["@graph"]; ok {
			jobs = append(jobs, extractJobsFromJSONLD(graph)...)
		}
		if main, ok := value["mainEntity"]; ok {
			jobs = append(jobs, extractJobsFromJSONLD(main)...)
		}
		if item, ok := value["item"]; ok {
			jobs = append(jobs, extractJobsFromJSONLD(item)...)
		}
	}

	return jobs
}

func jobsFromItemList(value map[string]any) []RawJob {
	items, ok := value["itemListElement"]
	if !ok {
		return nil
	}
	return extractJobsFromJSONLD(items)
}

func jobFromJobPosting(value map[string]any) RawJob {
	job := RawJob{
		Title:       stringValue(value["title"], value["name"]),
		Company:     stringValue(mapValue(value["hiringOrganization"], "name")),
		URL:         stringValue(value["url"], value["@id"]),
		JobType:     joinValues(value["employmentType"]),
		Posted:      stringValue(value["datePosted"]),
		Description: stringValue(value["description"]),
	}
	switch id := value["identifier"].(type) {
	case string:
		job.ID = id
	case map[string]any:
		job.ID = stringValue(id["value"])
	}
	job.Compensation = compensationFromJSONLD(value["baseSalary"])
	if job.Compensation == nil {
		job.Salary = stringValue(value["baseSalary"])
	}

	address := firstAddress(value["jobLocation"])
	job.City = stringValue(address["addressLocality"])
	job.State = stringValue(address["addressRegion"])
	job.Country = stringValue(address["addressCountry"])
	if job.City == "" && job.State == "" && job.Country == "" {
		job.Location = stringValue(value["jobLocation"])
	}

	if strings.EqualFold(stringValue(value["jobLocationType"]), "TELECOMMUTE") {
		remote := true
		job.Remote = &remote
	}
	return job
}

var jsonldUnits = map[string]models.Interval{
	"YEAR":  models.IntervalYearly,
	"MONTH": models.IntervalMonthly,
	"WEEK":  models.IntervalWeekly,
	"DAY":   models.IntervalDaily,
	"HOUR":  models.IntervalHourly,
}

func compensationFromJSONLD(value any) *models.Compensation {
	salary, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	amount, ok := salary["value"].(map[string]any)
	if !ok {
		return nil
	}
	minAmount, okMin := floatValue(amount["minValue"])
	maxAmount, okMax := floatValue(amount["maxValue"])
	if exact, ok := floatValue(amount["value"]); ok && !okMin {
		minAmount, maxAmount, okMin, okMax = exact, exact, true, true
	}
	if !okMin {
		return nil
	}
	if !okMax {
		maxAmount = minAmount
	}
	interval := jsonldUnits[strings.ToUpper(stringValue(amount["unitText"], salary["unitText"]))]
	return &models.Compensation{
		Interval:  interval,
		MinAmount: minAmount,
		MaxAmount: maxAmount,
		Currency:  strings.ToUpper(stringValue(salary["currency"])),
	}
}

func firstAddress(value any) map[string]any {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if address := firstAddress(item); len(address) > 0 {
				return address
			}
		}
	case map[string]any:
		if address, ok := v["address"].(map[string]any); ok {
			return address
		}
		if _, ok := v["addressLocality"]; ok {
			return v
		}
	}
	return nil
}

func joinValues(value any) string {
	list, ok := value.([]any)
	if !ok {
		return stringValue(value)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if part := stringValue(item); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func stringValue(values ...any) string {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		case map[string]any:
			if name := stringValue(v["name"]); name != "" {
				return name
			}
		}
	}
	return ""
}

func floatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func boolValue(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

func mapValue(value any, key string) any {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// pathValue walks nested maps along a dotted path.
func pathValue(value any, path string) any {
	for _, key := range strings.Split(path, ".") {
		value = mapValue(value, key)
		if value == nil {
			return nil
		}
	}
	return value
}

// firstString returns the first non-empty string among the given keys.
func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := stringValue(item[key]); value != "" {
			return value
		}
	}
	return ""
}

func boolPtr(value bool) *bool {
	return &value
}
