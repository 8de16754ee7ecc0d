package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jimezsa/jobharvest/internal/config"
	"github.com/jimezsa/jobharvest/internal/export"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/network"
	"github.com/jimezsa/jobharvest/internal/scraper"
	"github.com/jimezsa/jobharvest/internal/seen"
	"github.com/jimezsa/jobharvest/internal/ui"
)

func TestResolveFormatWithOutputPathRespectsGlobalFlags(t *testing.T) {
	ctx := &Context{Out: io.Discard, JSONOutput: true}
	got, err := resolveFormat(ctx, SearchOptions{}, "jobs.json")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatJSON {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatJSON)
	}

	ctx = &Context{Out: io.Discard, PlainText: true}
	got, err = resolveFormat(ctx, SearchOptions{}, "jobs.tsv")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatTSV {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatTSV)
	}

	got, err = resolveFormat(&Context{Out: io.Discard}, SearchOptions{}, "jobs.csv")
	if err != nil {
		t.Fatalf("resolveFormat() error = %v", err)
	}
	if got != export.FormatCSV {
		t.Fatalf("resolveFormat() = %q, want %q", got, export.FormatCSV)
	}
}

func TestUpdateSeenHistoryCreatesFileAndMerges(t *testing.T) {
	seenPath := filepath.Join(t.TempDir(), "jobs_seen.json")
	first := []models.Job{
		{ID: "1", Site: models.SiteGupy, Title: "Hardware Engineer", Company: "Acme", URL: "https://example.com/1"},
	}

	for i := 0; i < 2; i++ {
		if err := updateSeenHistory(seenPath, first); err != nil {
			t.Fatalf("updateSeenHistory() run %d error = %v", i, err)
		}
	}
	got, err := seen.ReadJobs(seenPath)
	if err != nil {
		t.Fatalf("ReadJobs() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) after repeated update = %d, want 1", len(got))
	}

	second := append(first, models.Job{ID: "2", Site: models.SiteStepstone, Title: "Embedded Engineer", Company: "Beta", URL: "https://example.com/2"})
	if err := updateSeenHistory(seenPath, second); err != nil {
		t.Fatalf("updateSeenHistory() error = %v", err)
	}
	got, err = seen.ReadJobs(seenPath)
	if err != nil {
		t.Fatalf("ReadJobs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func writeQueryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestResolveQueries(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		file    string
		want    []string
		wantErr string
	}{
		{name: "single", raw: "software engineer", want: []string{"software engineer"}},
		{name: "trims and drops empty tokens", raw: "software engineer, , Data Scientist", want: []string{"software engineer", "Data Scientist"}},
		{name: "case-insensitive dedupe keeps first", raw: "Backend,backend, BACKEND", want: []string{"Backend"}},
		{name: "file array", file: `["software engineer","  Data Scientist  ",""]`, want: []string{"software engineer", "Data Scientist"}},
		{name: "file job_titles", file: `{"job_titles":["Backend","SRE"]}`, want: []string{"Backend", "SRE"}},
		{name: "positional first then file", raw: "Backend,Data Engineer", file: `{"job_titles":["backend","ML Engineer","  "]}`, want: []string{"Backend", "Data Engineer", "ML Engineer"}},
		{name: "too many", raw: "q1,q2,q3,q4,q5,q6", file: `["q7","q8","q9","q10","q11"]`, wantErr: "too many queries: max 10"},
		{name: "nothing left", raw: " , ", file: `{"job_titles":[" ",""]}`, wantErr: "at least one non-empty query is required"},
		{name: "broken json", file: `{"job_titles":[`, wantErr: "invalid --query-file"},
		{name: "unknown object", file: `{"queries":["backend"]}`, wantErr: "job_titles"},
		{name: "non-string entry", file: `{"job_titles":["backend",123]}`, wantErr: "invalid --query-file"},
		{name: "scalar", file: `"backend"`, wantErr: "invalid --query-file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := ""
			if tc.file != "" {
				path = writeQueryFile(t, tc.file)
			}
			got, err := resolveQueries(tc.raw, path)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("resolveQueries() error = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveQueries() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("resolveQueries() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestResolveQueriesMissingFile(t *testing.T) {
	_, err := resolveQueries("", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "read --query-file") {
		t.Fatalf("resolveQueries() error = %v, want read error", err)
	}
}

func TestMergeUniqueJobsDedupesAcrossQueries(t *testing.T) {
	existing := []models.Job{
		{ID: "li-1", Site: models.SiteLinkedIn, Title: "Backend Engineer", Company: "Acme"},
		{ID: "gp-9", Site: models.SiteGupy, Title: "Analista", Company: "Loja"},
	}
	incoming := []models.Job{
		{ID: "gd-1", Site: models.SiteGlassdoor, Title: " backend engineer ", Company: "ACME"},
		{ID: "gp-9", Site: models.SiteGupy, Title: "Analista de Dados", Company: "Loja"},
		{ID: "gp-9", Site: models.SiteIndeed, Title: "Data Engineer", Company: "Acme"},
		{Site: models.SiteStepstone},
	}

	got := mergeUniqueJobs(existing, incoming)
	if len(got) != 4 {
		t.Fatalf("len(got) = %d, want 4: %#v", len(got), got)
	}
	if got[0].ID != "li-1" || got[1].ID != "gp-9" {
		t.Fatalf("existing jobs changed: %#v", got[:2])
	}
	if got[2].Site != models.SiteIndeed {
		t.Fatalf("same ID on another site should be kept, got %#v", got[2])
	}
	if got[3].Site != models.SiteStepstone {
		t.Fatalf("keyless job should be kept, got %#v", got[3])
	}
}

func TestMergeUniqueJobsKeepsSingleQueryDuplicates(t *testing.T) {
	incoming := []models.Job{
		{Site: models.SiteLinkedIn, Title: "Backend Engineer", Company: "Acme"},
		{Site: models.SiteIndeed, Title: "Backend Engineer", Company: "Acme"},
	}
	if got := mergeUniqueJobs(nil, incoming); len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestFormatSearchSummary(t *testing.T) {
	if got := formatSearchSummary(nil); got != "summary: new_jobs=0 by_site=none" {
		t.Fatalf("formatSearchSummary(nil) = %q", got)
	}
	jobs := []models.Job{
		{Site: models.SiteStepstone},
		{Site: models.SiteGupy},
		{Site: models.SiteStepstone},
		{},
	}
	want := "summary: new_jobs=4 by_site=gupy:1, stepstone:2, unknown:1"
	if got := formatSearchSummary(jobs); got != want {
		t.Fatalf("formatSearchSummary() = %q, want %q", got, want)
	}
}

func TestSelectSites(t *testing.T) {
	got, err := selectSites("all", nil)
	if err != nil {
		t.Fatalf("selectSites() error = %v", err)
	}
	if !reflect.DeepEqual(got, models.AllSites()) {
		t.Fatalf("selectSites(all) = %v", got)
	}

	got, err = selectSites("", []string{"gupy", "stepstone.de"})
	if err != nil {
		t.Fatalf("selectSites() error = %v", err)
	}
	if want := []models.Site{models.SiteGupy, models.SiteStepstone}; !reflect.DeepEqual(got, want) {
		t.Fatalf("selectSites(defaults) = %v, want %v", got, want)
	}

	got, err = selectSites("AngelList, indeed,wellfound", nil)
	if err != nil {
		t.Fatalf("selectSites() error = %v", err)
	}
	if want := []models.Site{models.SiteWellfound, models.SiteIndeed}; !reflect.DeepEqual(got, want) {
		t.Fatalf("selectSites() = %v, want %v", got, want)
	}

	if _, err := selectSites("indeed,monster", nil); err == nil || !strings.Contains(err.Error(), "monster") {
		t.Fatalf("selectSites() error = %v, want unknown site", err)
	}
}

func TestBaseInputFallsBackToConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DefaultLocation = "Berlin"
	cfg.DefaultHours = 48
	ctx := &Context{Config: cfg, Verbose: true}
	pool, err := network.NewProxyPool([]string{"10.0.0.1:8080"})
	if err != nil {
		t.Fatalf("NewProxyPool() error = %v", err)
	}

	in := baseInput(ctx, SearchOptions{Limit: 5, Country: "germany", JobType: "contract"}, []models.Site{models.SiteStepstone}, pool)
	if in.Location != "Berlin" || in.Country != "germany" {
		t.Fatalf("location/country = %q/%q", in.Location, in.Country)
	}
	if in.ResultsWanted != 5 || in.HoursOld != 48 {
		t.Fatalf("results/hours = %d/%d", in.ResultsWanted, in.HoursOld)
	}
	if in.Verbosity != 2 || in.JobType != models.JobTypeContract {
		t.Fatalf("verbosity/job type = %d/%q", in.Verbosity, in.JobType)
	}
	if !in.Proxies.Enabled {
		t.Fatalf("proxies should be enabled with a non-empty pool")
	}
	if in.DescriptionFormat != models.FormatMarkdown {
		t.Fatalf("description format = %q", in.DescriptionFormat)
	}
}

type blockedFetcher struct{}

func (blockedFetcher) Get(_ context.Context, url string, _ map[string]string) (*scraper.Response, error) {
	return &scraper.Response{Status: http.StatusForbidden, URL: url}, nil
}

func TestRunSearchReportsFailedSites(t *testing.T) {
	t.Setenv("JOBHARVEST_CONFIG_DIR", t.TempDir())
	t.Setenv("JOBHARVEST_PROXIES", "")

	var out, errOut bytes.Buffer
	ctx := &Context{
		Out:        &out,
		Err:        &errOut,
		UI:         ui.New(&out, &errOut, ui.ColorNever, true),
		Config:     config.DefaultConfig(),
		JSONOutput: true,
		Fetchers: func(models.Site, []string) (scraper.Fetcher, error) {
			return blockedFetcher{}, nil
		},
	}

	if err := runSearch(ctx, "golang", "gupy,stepstone", SearchOptions{}); err != nil {
		t.Fatalf("runSearch() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Fatalf("stdout = %q, want []", got)
	}
	stderr := errOut.String()
	for _, want := range []string{"gupy: failed (0 jobs)", "stepstone: failed (0 jobs)", "summary: new_jobs=0 by_site=none"} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("stderr %q missing %q", stderr, want)
		}
	}
}

func TestRunSearchSeenFlagsRequireSeen(t *testing.T) {
	ctx := &Context{Out: io.Discard, Err: io.Discard, Config: config.DefaultConfig()}
	for _, opts := range []SearchOptions{{NewOnly: true}, {NewOut: "new.json"}, {SeenUpdate: true}} {
		if err := runSearch(ctx, "golang", "gupy", opts); err == nil || !strings.Contains(err.Error(), "requires --seen") {
			t.Fatalf("runSearch(%+v) error = %v, want requires --seen", opts, err)
		}
	}
}
