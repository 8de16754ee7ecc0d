package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Site identifies a supported job board.
type Site string

const (
	SiteLinkedIn  Site = "linkedin"
	SiteIndeed    Site = "indeed"
	SiteGlassdoor Site = "glassdoor"
	SiteStepstone Site = "stepstone"
	SiteGupy      Site = "gupy"
	SiteWellfound Site = "wellfound"
)

var allSites = []Site{SiteLinkedIn, SiteIndeed, SiteGlassdoor, SiteStepstone, SiteGupy, SiteWellfound}

// AllSites returns the supported sites in their canonical order.
func AllSites() []Site {
	return append([]Site(nil), allSites...)
}

// ParseSite resolves a user supplied site name, accepting a few common aliases.
func ParseSite(value string) (Site, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "www.")
	switch value {
	case "stepstone.de", "stepstone-de":
		return SiteStepstone, true
	case "gupy.io":
		return SiteGupy, true
	case "angellist", "wellfound.com":
		return SiteWellfound, true
	}
	for _, site := range allSites {
		if string(site) == value {
			return site, true
		}
	}
	return "", false
}

// JobType is the shared employment type vocabulary.
type JobType string

const (
	JobTypeFullTime   JobType = "fulltime"
	JobTypePartTime   JobType = "parttime"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeTemporary  JobType = "temporary"
)

// JobTypeOrder lists job types in the order they are reported.
var JobTypeOrder = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeTemporary}

// Interval is the pay period of a compensation range.
type Interval string

const (
	IntervalYearly  Interval = "yearly"
	IntervalMonthly Interval = "monthly"
	IntervalWeekly  Interval = "weekly"
	IntervalDaily   Interval = "daily"
	IntervalHourly  Interval = "hourly"
)

type Compensation struct {
	Interval  Interval `json:"interval"`
	MinAmount float64  `json:"min_amount"`
	MaxAmount float64  `json:"max_amount"`
	Currency  string   `json:"currency"`
}

type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

func (l Location) IsZero() bool {
	return l.City == "" && l.State == "" && l.Country == ""
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{l.City, l.State, l.Country} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) *Date {
	y, m, d := t.Date()
	return &Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// Job is the canonical posting produced by every site.
type Job struct {
	ID           string        `json:"id"`
	Site         Site          `json:"site"`
	Title        string        `json:"title"`
	Company      string        `json:"company"`
	Location     Location      `json:"location"`
	JobTypes     []JobType     `json:"job_type,omitempty"`
	DatePosted   *Date         `json:"date_posted,omitempty"`
	URL          string        `json:"job_url"`
	DirectURL    string        `json:"job_url_direct,omitempty"`
	Description  string        `json:"description,omitempty"`
	Compensation *Compensation `json:"compensation,omitempty"`
	Remote       bool          `json:"is_remote"`
	Emails       []string      `json:"emails,omitempty"`
}

// JobTypeLabel joins the job types with commas.
func (j Job) JobTypeLabel() string {
	parts := make([]string, 0, len(j.JobTypes))
	for _, jt := range j.JobTypes {
		parts = append(parts, string(jt))
	}
	return strings.Join(parts, ", ")
}
