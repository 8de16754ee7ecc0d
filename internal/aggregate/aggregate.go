// Package aggregate fans a search out to one orchestrator per site and
// merges what comes back.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/network"
	"github.com/jimezsa/jobharvest/internal/scraper"
)

const (
	DefaultConcurrency = 4
	DefaultRunTimeout  = 5 * time.Minute
)

// Site completion statuses reported in Stats.Sites.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// FetcherFactory builds the transport for one site run. proxies is empty
// when the search runs without proxies.
type FetcherFactory func(site models.Site, proxies []string) (scraper.Fetcher, error)

// NetworkFetchers returns a factory producing tls-client transports, each
// with its own rotator over the site's proxies.
func NetworkFetchers(timeout time.Duration) FetcherFactory {
	return func(_ models.Site, proxies []string) (scraper.Fetcher, error) {
		var rotator *network.Rotator
		if len(proxies) > 0 {
			var err error
			rotator, err = network.NewRotator(proxies, network.DefaultBanDuration)
			if err != nil {
				return nil, err
			}
		}
		return network.NewClient(rotator, timeout)
	}
}

type Options struct {
	Concurrency int
	RunTimeout  time.Duration
	// Defaults applies to every site; Sites overrides it per site.
	Defaults scraper.Config
	Sites    map[models.Site]scraper.Config
	// Proxies is the configured pool used when a search enables proxies
	// without listing its own.
	Proxies *network.ProxyPool
}

type SiteStatus struct {
	Status   string `json:"status"`
	Jobs     int    `json:"jobs"`
	Requests int    `json:"requests"`
	Strategy string `json:"strategy,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type Stats struct {
	TotalJobs       int                        `json:"total_jobs"`
	JobsBySite      map[models.Site]int        `json:"jobs_by_site"`
	JobTypes        map[models.JobType]int     `json:"job_types"`
	DurationSeconds float64                    `json:"duration_seconds"`
	ProxiesUsed     int                        `json:"proxies_used"`
	ProxyEnabled    bool                       `json:"proxy_enabled"`
	Sites           map[models.Site]SiteStatus `json:"sites"`
}

// Result is the merged outcome of a search. Jobs follow the requested site
// order.
type Result struct {
	Jobs  []models.Job        `json:"jobs"`
	Stats Stats               `json:"stats"`
	Runs  []scraper.RunResult `json:"-"`
}

type Aggregator struct {
	fetchers FetcherFactory
	opts     Options
	logger   zerolog.Logger
	lookup   func(models.Site) (scraper.Source, bool)
	clock    func() time.Time
}

type Option func(*Aggregator)

// WithSources replaces the site registry.
func WithSources(lookup func(models.Site) (scraper.Source, bool)) Option {
	return func(a *Aggregator) {
		a.lookup = lookup
	}
}

// WithClock fixes the anchor used for relative posting dates.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.clock = now
	}
}

func New(fetchers FetcherFactory, opts Options, logger zerolog.Logger, extra ...Option) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	a := &Aggregator{
		fetchers: fetchers,
		opts:     opts,
		logger:   logger,
		lookup:   scraper.Lookup,
	}
	for _, opt := range extra {
		opt(a)
	}
	return a
}

// Search validates in and runs every requested site. Site failures never
// fail the search; they show up in Stats.Sites.
func (a *Aggregator) Search(ctx context.Context, in models.ScraperInput) (Result, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	pool, err := a.proxyPool(in.Proxies)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.RunTimeout)
	defer cancel()

	runs := make([]scraper.RunResult, len(in.Sites))
	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, site := range in.Sites {
		g.Go(func() error {
			runs[i] = a.runSite(ctx, site, in, pool)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Jobs: []models.Job{},
		Runs: runs,
		Stats: Stats{
			JobsBySite:   map[models.Site]int{},
			JobTypes:     map[models.JobType]int{},
			Sites:        map[models.Site]SiteStatus{},
			ProxyEnabled: pool.Len() > 0,
			ProxiesUsed:  pool.Len(),
		},
	}
	for _, run := range runs {
		res.Jobs = append(res.Jobs, run.Jobs...)
		res.Stats.JobsBySite[run.Site] = len(run.Jobs)
		res.Stats.Sites[run.Site] = siteStatus(run)
	}
	res.Stats.TotalJobs = len(res.Jobs)
	res.Stats.JobTypes = CountJobTypes(res.Jobs)
	res.Stats.DurationSeconds = math.Round(time.Since(start).Seconds()*100) / 100

	a.logger.Info().
		Int("jobs", res.Stats.TotalJobs).
		Int("sites", len(in.Sites)).
		Float64("seconds", res.Stats.DurationSeconds).
		Msg("search finished")
	return res, nil
}

func (a *Aggregator) runSite(ctx context.Context, site models.Site, in models.ScraperInput, pool *network.ProxyPool) scraper.RunResult {
	failed := func(err error) scraper.RunResult {
		a.logger.Warn().Err(err).Str("site", string(site)).Msg("site not started")
		return scraper.RunResult{Site: site, State: scraper.StateError, Partial: true, Err: err}
	}

	src, ok := a.lookup(site)
	if !ok {
		return failed(fmt.Errorf("no source registered for %s", site))
	}
	fetcher, err := a.fetchers(site, pool.ProxiesFor(site))
	if err != nil {
		return failed(&scraper.UnavailableError{Err: fmt.Errorf("transport: %w", err)})
	}

	var opts []scraper.Option
	if a.clock != nil {
		opts = append(opts, scraper.WithClock(a.clock))
	}
	orch := scraper.NewOrchestrator(src, fetcher, a.siteConfig(src), a.logger, opts...)
	return orch.Run(ctx, in)
}

func (a *Aggregator) siteConfig(src scraper.Source) scraper.Config {
	override := a.opts.Defaults
	if site, ok := a.opts.Sites[src.Site()]; ok {
		if site.Delay > 0 {
			override.Delay = site.Delay
		}
		if site.MaxRequests > 0 {
			override.MaxRequests = site.MaxRequests
		}
		if site.RequestTimeout > 0 {
			override.RequestTimeout = site.RequestTimeout
		}
	}
	return scraper.ConfigFor(src.Profile(), override)
}

func (a *Aggregator) proxyPool(policy models.ProxyPolicy) (*network.ProxyPool, error) {
	if !policy.Enabled {
		return nil, nil
	}
	if len(policy.URLs) > 0 {
		pool, err := network.NewProxyPool(policy.URLs)
		if err != nil {
			return nil, &models.ValidationError{Fields: []string{err.Error()}}
		}
		return pool, nil
	}
	return a.opts.Proxies, nil
}

func siteStatus(run scraper.RunResult) SiteStatus {
	st := SiteStatus{
		Status:   StatusCompleted,
		Jobs:     len(run.Jobs),
		Requests: run.Requests,
		Strategy: run.Strategy,
	}
	if !run.Partial {
		return st
	}
	st.Status = StatusPartial
	if len(run.Jobs) == 0 {
		st.Status = StatusFailed
	}
	switch {
	case run.Err == nil:
	case errors.Is(run.Err, context.DeadlineExceeded):
		st.Reason = "timed out: " + run.Err.Error()
	default:
		st.Reason = run.Err.Error()
	}
	return st
}

// CountJobTypes tallies job types across jobs, leaving out types with no jobs.
func CountJobTypes(jobs []models.Job) map[models.JobType]int {
	counts := map[models.JobType]int{}
	for _, job := range jobs {
		for _, jt := range job.JobTypes {
			counts[jt]++
		}
	}
	return counts
}
