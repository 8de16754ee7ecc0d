package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

// RawJob is the loosely typed record extractors emit. Fields hold whatever
// text the board exposed; conversion into models.Job validates and normalizes.
type RawJob struct {
	ID      string
	Title   string
	Company string

	Location string
	City     string
	State    string
	Country  string

	JobType string
	URL     string
	// DirectURL is the employer's own application page when the board exposes it.
	DirectURL string

	Description     string
	DescriptionHTML bool

	Posted string
	Salary string
	// Compensation is set when the board provides structured pay data.
	Compensation *models.Compensation
	// Remote is set when the board provides an explicit remote flag.
	Remote *bool
}

type conversion struct {
	site    models.Site
	profile Profile
	format  models.DescriptionFormat
	anchor  time.Time
}

// toJob is the only place a models.Job is constructed.
func (c conversion) toJob(raw RawJob) (models.Job, error) {
	title := normalize.CleanTitle(raw.Title)
	if title == "" {
		return models.Job{}, fmt.Errorf("%w: missing title", ErrValidationReject)
	}
	company := normalize.CleanCompany(raw.Company)
	jobURL := strings.TrimSpace(raw.URL)
	if company == "" && jobURL == "" {
		return models.Job{}, fmt.Errorf("%w: %q has neither company nor url", ErrValidationReject, title)
	}

	job := models.Job{
		ID:        c.jobID(raw, title, company),
		Site:      c.site,
		Title:     title,
		Company:   company,
		Location:  c.location(raw),
		JobTypes:  normalize.JobTypes(raw.JobType),
		URL:       jobURL,
		DirectURL: strings.TrimSpace(raw.DirectURL),
	}

	isHTML := raw.DescriptionHTML || normalize.LooksLikeHTML(raw.Description)
	job.Description = normalize.FormatDescription(raw.Description, isHTML, c.format)

	if posted, ok := normalize.ResolveDate(raw.Posted, c.anchor); ok {
		job.DatePosted = models.NewDate(posted)
	}

	job.Compensation = validCompensation(raw.Compensation)
	if job.Compensation == nil && raw.Salary != "" {
		job.Compensation = normalize.ParseCompensation(raw.Salary, c.profile.DefaultInterval)
	}

	job.Remote = normalize.InferRemote(raw.Remote, title, raw.Location, job.Location.String(), job.Description)
	job.Emails = normalize.ExtractEmails(job.Description)
	return job, nil
}

func (c conversion) jobID(raw RawJob, title, company string) string {
	if id := strings.TrimSpace(raw.ID); id != "" {
		return c.profile.IDPrefix + id
	}
	if jobURL := strings.TrimSpace(raw.URL); jobURL != "" {
		return jobURL
	}
	return fmt.Sprintf("%s:%s|%s", c.site, normalize.Fold(title), normalize.Fold(company))
}

func (c conversion) location(raw RawJob) models.Location {
	structured := models.Location{
		City:    normalize.CleanText(raw.City),
		State:   normalize.CleanText(raw.State),
		Country: normalize.CleanText(raw.Country),
	}
	if !structured.IsZero() {
		if structured.Country == "" {
			structured.Country = c.profile.DefaultCountry
		}
		return structured
	}
	return normalize.ParseLocation(raw.Location, c.profile.DefaultCountry)
}

var knownCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "BRL": {}, "CAD": {}, "AUD": {}, "INR": {},
}

func validCompensation(comp *models.Compensation) *models.Compensation {
	if comp == nil {
		return nil
	}
	if _, ok := knownCurrencies[comp.Currency]; !ok {
		return nil
	}
	if comp.MinAmount <= 0 || comp.MinAmount > comp.MaxAmount {
		return nil
	}
	out := *comp
	if out.Interval == "" {
		out.Interval = models.IntervalYearly
	}
	return &out
}
