package scraper

import (
	"testing"

	"github.com/jimezsa/jobharvest/internal/models"
)

const wellfoundListing = `<html><body>
<h4 class="styles_resultCount__Biln8">Page <!-- -->1<!-- --> of <!-- -->2</h4>
<p>31 results total</p>
<div class="mb-6">
  <div class="flex">
    <img alt="company logo" src="/logo.png">
    <a href="/company/acme"><h2 class="font-semibold">Acme Robotics</h2></a>
  </div>
  <div class="mb-4">
    <div class="flex">
      <a href="/jobs/3012345-senior-go-engineer">Senior Go Engineer</a>
      <span class="pl-1">Porto</span>
      <span class="bg-accent-yellow-100">Full-time</span>
      <span>€60k – €80k</span>
    </div>
    <div class="flex">
      <a href="/jobs/3012345-senior-go-engineer?ref=dup">Senior Go Engineer</a>
    </div>
    <div class="flex">
      <a href="/jobs/3099999-platform-engineer">Platform Engineer</a>
      <span>Remote</span>
    </div>
  </div>
</div>
<a href="/jobs/applied">My applications</a>
</body></html>`

func TestWellfoundExtract_Anchors(t *testing.T) {
	ex := NewWellfound().Extract(Page{Index: 0, Body: []byte(wellfoundListing)})
	if ex.Err != nil {
		t.Fatalf("unexpected error: %v", ex.Err)
	}
	if len(ex.Jobs) != 2 {
		t.Fatalf("expected duplicate IDs to collapse into 2 jobs, got %d", len(ex.Jobs))
	}
	if ex.Final {
		t.Fatalf("expected page 1 of 2 to continue")
	}

	first := ex.Jobs[0]
	if first.Company != "Acme Robotics" {
		t.Fatalf("unexpected company: %q", first.Company)
	}
	if first.Location != "Porto" || first.JobType != "Full-time" {
		t.Fatalf("unexpected details: %q %q", first.Location, first.JobType)
	}

	job := mustConvert(t, NewWellfound(), first)
	if job.ID != "wf-3012345" || job.URL != "https://wellfound.com/jobs/3012345-senior-go-engineer" {
		t.Fatalf("unexpected identity: %s %s", job.ID, job.URL)
	}
	if job.Compensation == nil || job.Compensation.Currency != "EUR" || job.Compensation.MinAmount != 60000 {
		t.Fatalf("unexpected compensation: %+v", job.Compensation)
	}

	second := mustConvert(t, NewWellfound(), ex.Jobs[1])
	if second.Company != "Acme Robotics" || !second.Remote {
		t.Fatalf("unexpected second job: %+v", second)
	}
}

func TestWellfoundExtract_NextData(t *testing.T) {
	body := `<html><body><script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"jobs":[
  {"id": 77, "title": "Backend Engineer", "companyName": "Beta", "url": "/jobs/4000001-backend-engineer", "locationNames": ["Lisbon", "Remote"], "remote": true},
  {"id": 78, "description": "missing title and company"}
]}}}
</script>
<p>120 results total</p></body></html>`

	ex := NewWellfound().Extract(Page{Index: 4, Body: []byte(body)})
	if len(ex.Jobs) != 1 {
		t.Fatalf("expected 1 job from embedded data, got %d", len(ex.Jobs))
	}
	if ex.Jobs[0].ID != "4000001" || ex.Jobs[0].Location != "Lisbon, Remote" {
		t.Fatalf("unexpected job: %+v", ex.Jobs[0])
	}
	if !ex.Final {
		t.Fatalf("expected page 5 of 5 to be final")
	}
}

func TestWellfoundExtract_NoAnchors(t *testing.T) {
	ex := NewWellfound().Extract(Page{Body: []byte(`<html><body><h1>Just a moment...</h1></body></html>`)})
	if ex.Err != nil || len(ex.Jobs) != 0 || !ex.Final {
		t.Fatalf("expected empty final extraction, got %+v", ex)
	}
}

func TestWellfoundExtract_RequiresListingContent(t *testing.T) {
	// Job anchors without a result count or job card markers are not a results page.
	body := `<html><body><div class="flex"><a href="/company/acme">Acme</a>
<a href="/jobs/3012345-senior-go-engineer">Senior Go Engineer</a></div></body></html>`
	ex := NewWellfound().Extract(Page{Body: []byte(body)})
	if len(ex.Jobs) != 0 || !ex.Final || ex.Reason != "no listing content" {
		t.Fatalf("expected final extraction without jobs, got %+v", ex)
	}

	withCount := `<p>3 results total</p>` + body
	if ex := NewWellfound().Extract(Page{Body: []byte(withCount)}); len(ex.Jobs) != 0 || ex.Reason == "" {
		t.Fatalf("result count alone should not pass the content check, got %+v", ex)
	}

	marked := withCount + `<span>Actively Hiring</span>`
	if ex := NewWellfound().Extract(Page{Body: []byte(marked)}); len(ex.Jobs) != 1 || ex.Reason != "" {
		t.Fatalf("expected the listing to be parsed, got %+v", ex)
	}
}

func TestWellfoundPagination(t *testing.T) {
	cases := []struct {
		body           string
		index          int
		current, total int
		ok             bool
	}{
		{"Page 2 of 2", 1, 2, 2, true},
		{`Page <!-- -->3<!-- --> of <!-- -->7`, 2, 3, 7, true},
		{"51 results total", 0, 1, 3, true},
		{"nothing here", 0, 0, 0, false},
	}
	for _, tc := range cases {
		current, total, ok := wellfoundPagination(tc.body, tc.index)
		if current != tc.current || total != tc.total || ok != tc.ok {
			t.Fatalf("wellfoundPagination(%q) = %d, %d, %v", tc.body, current, total, ok)
		}
	}
}

func TestWellfoundRoleAndLocation(t *testing.T) {
	roles := map[string]string{
		"":                   "software-engineer",
		"Product Owner":      "product-manager",
		"ml engineer":        "machine-learning-engineer",
		"Data Scientist":     "data-scientist",
		"Go Developer":       "software-engineer",
		"Head of Operations": "operations",
	}
	for term, want := range roles {
		if got := wellfoundRole(term); got != want {
			t.Fatalf("wellfoundRole(%q) = %q, want %q", term, got, want)
		}
	}

	locations := map[string]string{
		"":                "europe",
		"Porto, Portugal": "porto",
		"Remote (EU)":     "remote",
		"New York City":   "new-york-city",
	}
	for location, want := range locations {
		if got := wellfoundLocation(location); got != want {
			t.Fatalf("wellfoundLocation(%q) = %q, want %q", location, got, want)
		}
	}
}

func TestWellfoundStrategies(t *testing.T) {
	strategies := NewWellfound().Strategies(models.ScraperInput{SearchTerm: "Software Engineer", Location: "Porto, Portugal"})
	want := []string{
		"https://wellfound.com/role/l/software-engineer/porto",
		"https://wellfound.com/role/l/software-engineer/europe",
		"https://wellfound.com/remote/software-engineer-jobs",
		"https://wellfound.com/role/software-engineer",
	}
	if len(strategies) != len(want) {
		t.Fatalf("expected %d strategies, got %d", len(want), len(strategies))
	}
	for i, s := range strategies {
		if got := s.URL(0); got != want[i] {
			t.Fatalf("strategy %d: got %s want %s", i, got, want[i])
		}
	}
	if got := strategies[0].URL(1); got != want[0]+"?page=2" {
		t.Fatalf("unexpected second page url: %s", got)
	}
	if strategies[1].MaxPages != 3 {
		t.Fatalf("expected fallbacks to be capped at 3 pages")
	}

	remote := NewWellfound().Strategies(models.ScraperInput{SearchTerm: "designer", Location: "Remote"})
	if len(remote) != 3 {
		t.Fatalf("expected duplicate remote fallback to be dropped, got %d", len(remote))
	}
}
