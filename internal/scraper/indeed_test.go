package scraper

import (
	"strings"
	"testing"

	"github.com/jimezsa/jobharvest/internal/models"
)

func TestBuildIndeedURL(t *testing.T) {
	in := models.ScraperInput{
		SearchTerm: "golang",
		Location:   "New York, NY",
		Country:    "us",
		JobType:    models.JobTypeFullTime,
		HoursOld:   30,
	}

	url := buildIndeedURL(in, 2)
	if !strings.HasPrefix(url, "https://www.indeed.com/jobs?") {
		t.Fatalf("unexpected indeed domain: %s", url)
	}
	if !containsAll(url, []string{"q=golang", "l=New+York%2C+NY", "start=20", "jt=fulltime", "fromage=2"}) {
		t.Fatalf("unexpected indeed url: %s", url)
	}
	if got := buildIndeedURL(models.ScraperInput{SearchTerm: "go", Country: "UK"}, 0); !strings.HasPrefix(got, "https://uk.indeed.com/jobs?") || strings.Contains(got, "start=") {
		t.Fatalf("unexpected first page url: %s", got)
	}
}

func TestIndeedExtract_PrefersMosaicJSON(t *testing.T) {
	body := `<html><head><script>
window.mosaic.providerData["mosaic-provider-jobcards"]={"metaData":{"mosaicProviderJobCardsModel":{"results":[
 {"jobkey":"abc123","title":"Go Engineer","company":"Acme","formattedLocation":"Austin, TX","snippet":"<ul><li>Build services</li></ul>","formattedRelativeTime":"3 days ago","remoteLocation":false,"extractedSalary":{"min":120000,"max":150000,"type":"yearly"}},
 {"jobkey":"def456","title":"SRE","company":"Beta","formattedLocation":"Remote","pubDate":1758326400000,"remoteLocation":true},
 {"jobkey":"","title":"Broken"}
]}}};
window.mosaic.providerData["other"]={};
</script></head><body>
<a class="tapItem" href="/rc/clk?jk=zzz"><h2 class="jobTitle"><span>Should not be used</span></h2></a>
</body></html>`

	ex := NewIndeed().Extract(Page{Body: []byte(body), Input: models.ScraperInput{Country: "us"}})
	if ex.Err != nil {
		t.Fatalf("unexpected error: %v", ex.Err)
	}
	if len(ex.Jobs) != 2 || ex.Skipped != 1 {
		t.Fatalf("expected 2 jobs and 1 skip, got %d/%d", len(ex.Jobs), ex.Skipped)
	}
	if !ex.Final {
		t.Fatalf("expected final page without a next link")
	}

	first := mustConvert(t, NewIndeed(), ex.Jobs[0])
	if first.ID != "in-abc123" || first.URL != "https://www.indeed.com/viewjob?jk=abc123" {
		t.Fatalf("unexpected identity: %s %s", first.ID, first.URL)
	}
	if first.Compensation == nil || first.Compensation.MinAmount != 120000 || first.Compensation.Currency != "USD" {
		t.Fatalf("unexpected compensation: %+v", first.Compensation)
	}
	if first.DatePosted == nil || first.DatePosted.String() != "2025-09-17" {
		t.Fatalf("unexpected date: %v", first.DatePosted)
	}
	if first.Location.City != "Austin" || first.Location.State != "TX" {
		t.Fatalf("unexpected location: %+v", first.Location)
	}

	second := mustConvert(t, NewIndeed(), ex.Jobs[1])
	if !second.Remote {
		t.Fatalf("expected explicit remote flag to win")
	}
	if second.DatePosted == nil || second.DatePosted.String() != "2025-09-20" {
		t.Fatalf("unexpected epoch date: %v", second.DatePosted)
	}
}

func TestIndeedExtract_FallsBackToCards(t *testing.T) {
	body := `<html><body>
<a class="tapItem" data-jk="k1" href="/rc/clk?jk=k1">
  <h2 class="jobTitle"><span>Backend Developer</span></h2>
  <span class="companyName">Gamma</span>
  <div class="companyLocation">Remote in Denver, CO</div>
  <div class="job-snippet"> Write Go
   every day </div>
  <span class="date">Posted 2 days ago</span>
</a>
<a class="tapItem" href="/rc/clk?jk=k1"><h2 class="jobTitle"><span>Backend Developer</span></h2></a>
<a class="tapItem" href="/rc/clk?jk=k2"></a>
<a data-testid="pagination-page-next" href="/jobs?start=10">Next</a>
</body></html>`

	ex := NewIndeed().Extract(Page{Body: []byte(body)})
	if ex.Err != nil {
		t.Fatalf("unexpected error: %v", ex.Err)
	}
	if len(ex.Jobs) != 1 || ex.Skipped != 1 {
		t.Fatalf("expected 1 job and 1 skip, got %d/%d", len(ex.Jobs), ex.Skipped)
	}
	if ex.Final {
		t.Fatalf("expected more pages when a next link is present")
	}
	if ex.Jobs[0].Description != "Write Go every day" {
		t.Fatalf("expected normalized snippet, got %q", ex.Jobs[0].Description)
	}
	if ex.Jobs[0].URL != "https://www.indeed.com/viewjob?jk=k1" {
		t.Fatalf("unexpected url: %q", ex.Jobs[0].URL)
	}
}

func TestIndeedExtract_EmptyBodyAborts(t *testing.T) {
	ex := NewIndeed().Extract(Page{Body: []byte("   ")})
	if ex.Err == nil {
		t.Fatalf("expected page error for an empty document")
	}
}

func containsAll(value string, parts []string) bool {
	for _, part := range parts {
		if !strings.Contains(value, part) {
			return false
		}
	}
	return true
}
