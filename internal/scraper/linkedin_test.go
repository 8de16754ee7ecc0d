package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/jimezsa/jobharvest/internal/models"
)

func TestParseLinkedInJobs(t *testing.T) {
	html := `
<ul>
  <li>
    <div class="base-card" data-entity-urn="urn:li:jobPosting:4361039203">
      <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/staff-engineer-4361039203?refId=abc"></a>
      <h3 class="base-search-card__title">Staff Engineer</h3>
      <h4 class="base-search-card__subtitle"><a href="https://www.linkedin.com/company/example">Example Co</a></h4>
      <span class="job-search-card__location">Remote</span>
      <time datetime="2024-01-10"></time>
    </div>
  </li>
</ul>`

	doc := mustDoc(t, html)
	jobs, skipped := parseLinkedInJobs(doc)
	if len(jobs) != 1 || skipped != 0 {
		t.Fatalf("expected 1 job and no skips, got %d/%d", len(jobs), skipped)
	}
	if jobs[0].Title != "Staff Engineer" {
		t.Fatalf("unexpected title: %q", jobs[0].Title)
	}
	if jobs[0].ID != "4361039203" {
		t.Fatalf("unexpected id: %q", jobs[0].ID)
	}
	if jobs[0].URL != "https://www.linkedin.com/jobs/view/staff-engineer-4361039203" {
		t.Fatalf("expected query to be stripped, got %q", jobs[0].URL)
	}

	job := mustConvert(t, NewLinkedIn(), jobs[0])
	if job.ID != "li-4361039203" {
		t.Fatalf("unexpected canonical id: %q", job.ID)
	}
	if !job.Remote {
		t.Fatalf("expected remote to be true")
	}
	if !job.Location.IsZero() {
		t.Fatalf("expected empty location for remote-only text, got %+v", job.Location)
	}
	if job.DatePosted == nil || job.DatePosted.String() != "2024-01-10" {
		t.Fatalf("unexpected date: %v", job.DatePosted)
	}
}

func TestParseLinkedInJobs_ExtractsSnippet(t *testing.T) {
	html := `
<ul>
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/2000002"></a>
    <h3 class="base-search-card__title">Platform Engineer</h3>
    <h4 class="base-search-card__subtitle">Remote Co</h4>
    <span class="job-search-card__location">Berlin, Germany</span>
    <div class="job-search-card__snippet">
      This is a remote-first position
    </div>
  </li>
</ul>`

	doc := mustDoc(t, html)
	jobs, _ := parseLinkedInJobs(doc)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Description != "This is a remote-first position" {
		t.Fatalf("unexpected snippet: %q", jobs[0].Description)
	}
	job := mustConvert(t, NewLinkedIn(), jobs[0])
	if !job.Remote {
		t.Fatalf("expected remote to be true from snippet")
	}
	if job.Location.City != "Berlin" || job.Location.Country != "Germany" {
		t.Fatalf("unexpected location: %+v", job.Location)
	}
}

func TestParseLinkedInJobs_DoesNotUseLocationAsSnippet(t *testing.T) {
	html := `
<ul>
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/3000003"></a>
    <h3 class="base-search-card__title">Backend Engineer</h3>
    <h4 class="base-search-card__subtitle">Example Co</h4>
    <span class="job-search-card__location">Munich, Germany</span>
    <div class="base-search-card__metadata">
      <span>Munich, Germany</span>
    </div>
  </li>
</ul>`

	doc := mustDoc(t, html)
	jobs, _ := parseLinkedInJobs(doc)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Description != "" {
		t.Fatalf("expected empty snippet, got %q", jobs[0].Description)
	}
}

func TestParseLinkedInJobs_DuplicateIDsYieldOneRecord(t *testing.T) {
	html := `
<ul>
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/go-dev-4000004"></a>
    <h3 class="base-search-card__title">Go Developer</h3>
    <h4 class="base-search-card__subtitle">Acme</h4>
  </li>
  <li>
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/go-dev-4000004?trk=dup"></a>
    <h3 class="base-search-card__title">Go Developer</h3>
    <h4 class="base-search-card__subtitle">Acme</h4>
  </li>
</ul>`

	jobs, _ := parseLinkedInJobs(mustDoc(t, html))
	if len(jobs) != 1 {
		t.Fatalf("expected duplicate cards to collapse, got %d", len(jobs))
	}
}

func TestLinkedInExtract_NoAnchors(t *testing.T) {
	ex := NewLinkedIn().Extract(Page{Body: []byte(`<html><body><p>No jobs here</p></body></html>`)})
	if ex.Err != nil {
		t.Fatalf("unexpected error: %v", ex.Err)
	}
	if len(ex.Jobs) != 0 || !ex.Final {
		t.Fatalf("expected empty final extraction, got %+v", ex)
	}

	ex = NewLinkedIn().Extract(Page{Body: nil})
	if ex.Err != nil || !ex.Final {
		t.Fatalf("expected empty body to end pagination, got %+v", ex)
	}
}

func TestLinkedInProfile_CoversMaxResults(t *testing.T) {
	profile := NewLinkedIn().Profile()
	if got := profile.MaxRequests * linkedInPageSize; got < models.MaxResultsWanted {
		t.Fatalf("request ceiling caps results at %d, below %d", got, models.MaxResultsWanted)
	}
}

func TestBuildLinkedInURL(t *testing.T) {
	in := models.ScraperInput{
		SearchTerm: "golang",
		Location:   "Berlin",
		HoursOld:   24,
		RemoteOnly: true,
		JobType:    models.JobTypeContract,
	}
	got := buildLinkedInURL(in, 2)
	for _, part := range []string{"keywords=golang", "location=Berlin", "f_TPR=r86400", "f_WT=2", "f_JT=C", "start=20"} {
		if !strings.Contains(got, part) {
			t.Fatalf("expected %q in %s", part, got)
		}
	}
}

func TestLinkedInDetailURL(t *testing.T) {
	got := linkedInDetailURL("https://de.linkedin.com/jobs/view/electronics-engineer-f-m-d-at-omnisent-4361039203?position=1&pageNum=0")
	want := "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/4361039203"
	if got != want {
		t.Fatalf("unexpected detail url: got %q want %q", got, want)
	}
}

func TestParseLinkedInDescription(t *testing.T) {
	html := `<div class="show-more-less-html__markup">Build APIs for distributed systems.</div>`
	doc := mustDoc(t, html)
	got := parseLinkedInDescription(doc)
	if got != "Build APIs for distributed systems." {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestLinkedInEnrich(t *testing.T) {
	detail := `
<div class="show-more-less-html__markup"><p>Design <strong>resilient</strong> services.</p></div>
<ul>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Employment type</h3>
    <span class="description__job-criteria-text">Contract</span>
  </li>
</ul>
<code id="applyUrl" style="display: none"><!--"https://www.linkedin.com/jobs/view/externalApply/5000005?url=https%3A%2F%2Fcareers%2Eexample%2Ecom%2Fjobs%2F42&urlHash=x"--></code>`

	fetcher := &stubFetcher{pages: map[string]stubPage{
		linkedInDetailAPI + "5000005": {status: 200, body: detail},
	}}
	raw := RawJob{ID: "5000005", Title: "SRE", Company: "Acme", URL: "https://www.linkedin.com/jobs/view/sre-5000005"}

	got := NewLinkedIn().Enrich(context.Background(), fetcher, raw)
	if !got.DescriptionHTML || !strings.Contains(got.Description, "<strong>resilient</strong>") {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if got.JobType != "Contract" {
		t.Fatalf("unexpected job type: %q", got.JobType)
	}
	if got.DirectURL != "https://careers.example.com/jobs/42" {
		t.Fatalf("unexpected direct url: %q", got.DirectURL)
	}

	job := mustConvert(t, NewLinkedIn(), got)
	if len(job.JobTypes) != 1 || job.JobTypes[0] != models.JobTypeContract {
		t.Fatalf("unexpected job types: %v", job.JobTypes)
	}
	if !strings.Contains(job.Description, "**resilient**") {
		t.Fatalf("expected markdown description, got %q", job.Description)
	}
}

func TestLinkedInEnrich_KeepsRawOnFailure(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]stubPage{}}
	raw := RawJob{ID: "6000006", Title: "SRE", Description: "short"}
	got := NewLinkedIn().Enrich(context.Background(), fetcher, raw)
	if got.Description != "short" {
		t.Fatalf("expected raw job to be kept, got %+v", got)
	}
}
