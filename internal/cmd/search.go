package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/export"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/network"
	"github.com/jimezsa/jobharvest/internal/scraper"
	"github.com/jimezsa/jobharvest/internal/seen"
)

type SearchCmd struct {
	Query string `arg:"" optional:"" help:"Search query (comma-separated). Optional when --query-file is provided."`
	Sites string `help:"Comma-separated list of sites (default: all)." default:"all"`
	SearchOptions
}

type SiteCmd struct {
	Query string `arg:"" optional:"" help:"Search query (comma-separated). Optional when --query-file is provided."`
	SearchOptions
	Site models.Site `kong:"-"`
}

type SearchOptions struct {
	Location          string `help:"Job location." env:"JOBHARVEST_DEFAULT_LOCATION"`
	Country           string `help:"Country (Indeed/Glassdoor domain)." env:"JOBHARVEST_DEFAULT_COUNTRY"`
	Limit             int    `help:"Maximum results per query and site." env:"JOBHARVEST_DEFAULT_RESULTS"`
	Remote            bool   `help:"Remote-only roles."`
	JobType           string `help:"Job type filter." enum:",fulltime,parttime,contract,internship,temporary" default:""`
	Hours             int    `help:"Jobs posted in the last N hours."`
	DescriptionFormat string `help:"Description format: markdown, html, plain." enum:",markdown,html,plain" default:""`
	FetchDescription  bool   `help:"Fetch detail pages for full descriptions (LinkedIn, Stepstone)."`
	Format            string `help:"Output format: csv, json, md, tsv, table." enum:",csv,json,md,tsv,table" default:""`
	Links             string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output            string `name:"output" short:"o" help:"Write output to a file."`
	Out               string `name:"out" help:"Alias for --output."`
	File              string `name:"file" help:"Alias for --output."`
	Proxies           string `help:"Comma-separated proxies (URL, host:port or host:port:user:pass)." env:"JOBHARVEST_PROXIES"`
	QueryFile         string `help:"Path to JSON file with queries (top-level string array or object with job_titles array)."`
	Seen              string `help:"Path to seen jobs JSON file."`
	NewOnly           bool   `help:"Output only unseen jobs (requires --seen)."`
	NewOut            string `help:"Write unseen jobs JSON to a file (requires --seen)."`
	SeenUpdate        bool   `help:"Update --seen history file by merging in newly discovered unseen jobs after search completes (requires --seen)."`
}

func (s *SearchCmd) Run(ctx *Context) error {
	return runSearch(ctx, s.Query, s.Sites, s.SearchOptions)
}

func (s *SiteCmd) Run(ctx *Context) error {
	return runSearch(ctx, s.Query, string(s.Site), s.SearchOptions)
}

func runSearch(ctx *Context, query string, sitesArg string, opts SearchOptions) error {
	if opts.NewOnly && strings.TrimSpace(opts.Seen) == "" {
		return fmt.Errorf("--new-only requires --seen")
	}
	if strings.TrimSpace(opts.NewOut) != "" && strings.TrimSpace(opts.Seen) == "" {
		return fmt.Errorf("--new-out requires --seen")
	}
	if opts.SeenUpdate && strings.TrimSpace(opts.Seen) == "" {
		return fmt.Errorf("--seen-update requires --seen")
	}

	queries, err := resolveQueries(query, opts.QueryFile)
	if err != nil {
		return err
	}
	sites, err := selectSites(sitesArg, ctx.Config.DefaultSites)
	if err != nil {
		return err
	}

	pool, err := proxyPool(opts.Proxies)
	if err != nil {
		return err
	}
	base := baseInput(ctx, opts, sites, pool)
	agg := ctx.aggregator(pool)

	stopIndicator := startSearchIndicator(ctx)
	var (
		jobs     []models.Job
		statuses []siteReport
	)
	for _, currentQuery := range queries {
		in := base
		in.SearchTerm = currentQuery
		res, err := agg.Search(ctx.context(), in)
		if err != nil {
			if stopIndicator != nil {
				stopIndicator()
			}
			return err
		}
		jobs = mergeUniqueJobs(jobs, res.Jobs)
		statuses = append(statuses, siteReports(currentQuery, in.Sites, res.Stats)...)
	}
	if stopIndicator != nil {
		stopIndicator()
	}

	reportSiteStatuses(ctx, statuses, len(queries) > 1)

	var unseenJobs []models.Job
	if strings.TrimSpace(opts.Seen) != "" {
		seenJobs, err := seen.ReadJobsAllowMissing(opts.Seen)
		if err != nil {
			return fmt.Errorf("read --seen: %w", err)
		}
		unseenJobs, _ = seen.Diff(jobs, seenJobs)
	}

	outputJobs := jobs
	if opts.NewOnly {
		outputJobs = unseenJobs
	}

	outputPath := resolveOutputPath(opts)
	if strings.TrimSpace(opts.NewOut) != "" && pathsEqual(outputPath, opts.NewOut) {
		return fmt.Errorf("--new-out path must differ from --output")
	}
	if strings.TrimSpace(opts.Seen) != "" && pathsEqual(outputPath, opts.Seen) {
		return fmt.Errorf("--output path must differ from --seen")
	}
	if strings.TrimSpace(opts.NewOut) != "" && pathsEqual(opts.NewOut, opts.Seen) {
		return fmt.Errorf("--new-out path must differ from --seen")
	}

	if strings.TrimSpace(opts.NewOut) != "" {
		if err := seen.WriteJobs(opts.NewOut, unseenJobs); err != nil {
			return fmt.Errorf("write --new-out: %w", err)
		}
	}

	format, err := resolveFormat(ctx, opts, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	var file *os.File
	if outputPath != "" {
		file, err = os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(opts.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	if err := export.WriteJobs(writer, outputJobs, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	}); err != nil {
		return err
	}

	if opts.SeenUpdate && strings.TrimSpace(opts.Seen) != "" {
		if err := updateSeenHistory(opts.Seen, unseenJobs); err != nil {
			return err
		}
	}

	summaryJobs := jobs
	if strings.TrimSpace(opts.Seen) != "" {
		summaryJobs = unseenJobs
	}
	printSearchSummary(ctx, summaryJobs)

	return nil
}

// baseInput builds the per-query input from flags, falling back to config.
func baseInput(ctx *Context, opts SearchOptions, sites []models.Site, pool *network.ProxyPool) models.ScraperInput {
	cfg := ctx.Config
	verbosity := 1
	if ctx.Verbose {
		verbosity = 2
	}
	return models.ScraperInput{
		Location:          firstNonEmpty(opts.Location, cfg.DefaultLocation),
		Country:           firstNonEmpty(opts.Country, cfg.DefaultCountry),
		ResultsWanted:     defaultInt(opts.Limit, cfg.DefaultResults),
		HoursOld:          defaultInt(opts.Hours, cfg.DefaultHours),
		Sites:             sites,
		DescriptionFormat: models.DescriptionFormat(firstNonEmpty(opts.DescriptionFormat, cfg.DescriptionFormat)),
		Verbosity:         verbosity,
		FetchDescription:  opts.FetchDescription,
		RemoteOnly:        opts.Remote,
		JobType:           models.JobType(opts.JobType),
		Proxies:           models.ProxyPolicy{Enabled: pool.Len() > 0},
	}.WithDefaults()
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func updateSeenHistory(seenPath string, inputJobs []models.Job) error {
	seenJobs, err := seen.ReadJobsAllowMissing(seenPath)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	mergedJobs, _ := seen.Merge(seenJobs, inputJobs)
	if err := seen.WriteJobs(seenPath, mergedJobs); err != nil {
		return fmt.Errorf("write --seen: %w", err)
	}

	return nil
}

func printSearchSummary(ctx *Context, jobs []models.Job) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintln(ctx.Err, formatSearchSummary(jobs))
}

// formatSearchSummary renders "summary: new_jobs=N by_site=a:1, b:2".
func formatSearchSummary(jobs []models.Job) string {
	if len(jobs) == 0 {
		return "summary: new_jobs=0 by_site=none"
	}
	totals := make(map[string]int)
	for _, job := range jobs {
		site := strings.ToLower(strings.TrimSpace(string(job.Site)))
		if site == "" {
			site = "unknown"
		}
		totals[site]++
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%d", name, totals[name])
	}
	return fmt.Sprintf("summary: new_jobs=%d by_site=%s", len(jobs), strings.Join(parts, ", "))
}

// mergeUniqueJobs appends incoming jobs not already present in existing.
// Duplicates inside incoming are kept.
func mergeUniqueJobs(existing []models.Job, incoming []models.Job) []models.Job {
	if len(incoming) == 0 {
		return existing
	}
	known := make(map[string]struct{}, len(existing))
	merged := append(make([]models.Job, 0, len(existing)+len(incoming)), existing...)
	for _, job := range existing {
		for _, key := range seen.Keys(job) {
			known[key] = struct{}{}
		}
	}

	for _, job := range incoming {
		keys := seen.Keys(job)
		duplicate := false
		for _, key := range keys {
			if _, ok := known[key]; ok {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, job)
		}
	}
	return merged
}

type siteReport struct {
	query  string
	site   models.Site
	status aggregate.SiteStatus
}

func siteReports(query string, sites []models.Site, stats aggregate.Stats) []siteReport {
	out := make([]siteReport, 0, len(sites))
	for _, site := range sites {
		st, ok := stats.Sites[site]
		if !ok {
			continue
		}
		out = append(out, siteReport{query: query, site: site, status: st})
	}
	return out
}

// reportSiteStatuses warns about sites that stopped early; with --verbose
// every site is listed.
func reportSiteStatuses(ctx *Context, reports []siteReport, withQuery bool) {
	if ctx == nil || ctx.UI == nil {
		return
	}
	for _, report := range reports {
		if report.status.Status == aggregate.StatusCompleted && !ctx.Verbose {
			continue
		}
		label := string(report.site)
		if withQuery {
			label = fmt.Sprintf("%s [%s]", report.site, report.query)
		}
		ctx.UI.SiteStatus(label, report.status.Status, report.status.Jobs, report.status.Reason)
	}
}

func resolveOutputPath(opts SearchOptions) string {
	if opts.Output != "" {
		return opts.Output
	}
	if opts.Out != "" {
		return opts.Out
	}
	return opts.File
}

func resolveFormat(ctx *Context, opts SearchOptions, outputPath string) (export.Format, error) {
	if outputPath != "" {
		if ctx.JSONOutput {
			return export.FormatJSON, nil
		}
		if ctx.PlainText {
			return export.FormatTSV, nil
		}
		if opts.Format == "" {
			return export.FormatCSV, nil
		}
		return export.ParseFormat(opts.Format)
	}

	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if opts.Format != "" {
		return export.ParseFormat(opts.Format)
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

// selectSites resolves the --sites value. "all" selects the configured
// default sites, or every supported site.
func selectSites(sitesArg string, defaults []string) ([]models.Site, error) {
	names := strings.Split(sitesArg, ",")
	if strings.EqualFold(strings.TrimSpace(sitesArg), "all") || strings.TrimSpace(sitesArg) == "" {
		if len(defaults) == 0 {
			return models.AllSites(), nil
		}
		names = defaults
	}
	sites, unknown := scraper.NormalizeSites(names)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown site: %s", strings.Join(unknown, ", "))
	}
	if len(sites) == 0 {
		return models.AllSites(), nil
	}
	return sites, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startSearchIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2KSearching... %ds %s", seconds, frame)
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
