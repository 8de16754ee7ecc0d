package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxRequests    = 25
	DefaultRequestTimeout = 30 * time.Second
)

// Config paces one site run.
type Config struct {
	// Delay is enforced between consecutive requests of a run.
	Delay time.Duration
	// MaxRequests is the hard ceiling of page requests per run.
	MaxRequests    int
	RequestTimeout time.Duration
}

// ConfigFor merges a site's profile with user overrides; zero override
// values keep the profile defaults.
func ConfigFor(profile Profile, override Config) Config {
	cfg := Config{
		Delay:          profile.Delay,
		MaxRequests:    profile.MaxRequests,
		RequestTimeout: DefaultRequestTimeout,
	}
	if override.Delay > 0 {
		cfg.Delay = override.Delay
	}
	if override.MaxRequests > 0 {
		cfg.MaxRequests = override.MaxRequests
	}
	if override.RequestTimeout > 0 {
		cfg.RequestTimeout = override.RequestTimeout
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	return cfg
}

// Orchestrator drives one site through its URL strategies page by page.
type Orchestrator struct {
	source  Source
	fetcher Fetcher
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
}

type Option func(*Orchestrator)

// WithClock sets the time used to resolve relative posting dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(source Source, fetcher Fetcher, cfg Config, logger zerolog.Logger, opts ...Option) *Orchestrator {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	o := &Orchestrator{
		source:  source,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LogLevel maps the request verbosity (0-2) to a zerolog level.
func LogLevel(verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.DebugLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

type run struct {
	in      models.ScraperInput
	state   *RunState
	conv    conversion
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Run executes the search for one site. It never returns an error: failures
// end the run and are reported on the result together with the jobs found so
// far. Cancelling ctx stops the run between pages.
func (o *Orchestrator) Run(ctx context.Context, in models.ScraperInput) RunResult {
	start := time.Now()
	site := o.source.Site()
	r := &run{
		in:    in,
		state: newRunState(site),
		conv: conversion{
			site:    site,
			profile: o.source.Profile(),
			format:  in.DescriptionFormat,
			anchor:  o.now(),
		},
		limiter: pageLimiter(o.cfg.Delay),
		logger:  o.logger.With().Str("site", string(site)).Logger().Level(LogLevel(in.Verbosity)),
	}

	var (
		stopErr  error
		strategy string
	)
	for i, candidate := range o.source.Strategies(in) {
		if i > 0 {
			if len(r.state.Jobs) > 0 || r.state.Requests >= o.cfg.MaxRequests {
				break
			}
			r.logger.Info().Str("strategy", candidate.Name).Msg("no jobs from previous search, trying fallback")
		}
		strategy = candidate.Name
		if abort, ok := o.paginate(ctx, r, candidate).(Abort); ok {
			stopErr = abort.Err
			break
		}
	}

	result := RunResult{
		Site:       site,
		Jobs:       r.state.Jobs,
		State:      StateDone,
		Strategy:   strategy,
		Requests:   r.state.Requests,
		Skipped:    r.state.Skipped,
		Rejected:   r.state.Rejected,
		Filtered:   r.state.Filtered,
		Duplicates: r.state.Duplicates,
		Elapsed:    time.Since(start),
	}
	if stopErr != nil {
		result.State = StateError
		result.Err = stopErr
		result.Partial = true
		r.logger.Warn().Err(stopErr).Int("jobs", len(result.Jobs)).Msg("site run stopped early")
	} else {
		r.logger.Info().Int("jobs", len(result.Jobs)).Int("requests", result.Requests).Msg("site run finished")
	}
	r.state.State = result.State
	return result
}

// paginate walks one strategy and returns its terminal outcome, Done or Abort.
func (o *Orchestrator) paginate(ctx context.Context, r *run, strategy Strategy) PageOutcome {
	for page := 0; ; page++ {
		switch {
		case strategy.MaxPages > 0 && page >= strategy.MaxPages:
			return Done{Reason: "page ceiling reached"}
		case r.state.Requests >= o.cfg.MaxRequests:
			return Done{Reason: "request ceiling reached"}
		case !r.in.Wants(len(r.state.Jobs)):
			return Done{Reason: "results wanted reached"}
		}
		if err := ctx.Err(); err != nil {
			return Abort{Err: interrupted(r.state.Site, ctx, err)}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return Abort{Err: interrupted(r.state.Site, ctx, err)}
		}

		outcome := o.step(ctx, r, strategy, page)
		switch oc := outcome.(type) {
		case Continue:
			r.logger.Debug().Int("page", page+1).Int("added", oc.Added).Msg("page parsed")
		case Done:
			r.logger.Debug().Int("page", page+1).Int("added", oc.Added).Str("reason", oc.Reason).Msg("pagination done")
			return oc
		case Abort:
			return oc
		}
	}
}

func (o *Orchestrator) step(ctx context.Context, r *run, strategy Strategy, page int) PageOutcome {
	site := r.state.Site
	target := strategy.URL(page)

	r.state.State = StateRequesting
	r.state.Requests++
	r.logger.Debug().Int("page", page+1).Str("url", target).Msg("requesting page")

	resp, err := o.fetch(ctx, target, strategy.Headers)
	if err != nil {
		kind := ErrPageAbort
		if errors.Is(err, ErrSiteUnavailable) {
			kind = ErrSiteUnavailable
		}
		return Abort{Err: &StopError{Kind: kind, Site: site, Page: page, Err: err}}
	}
	if kind := classifyStatus(resp); kind != nil {
		return Abort{Err: &StopError{Kind: kind, Site: site, Page: page, Status: resp.Status}}
	}

	r.state.State = StateParsing
	ex := o.extract(Page{Index: page, URL: target, Body: resp.Body, Input: r.in})
	r.state.Skipped += ex.Skipped
	r.state.Rejected += ex.Rejected
	r.state.Filtered += ex.Filtered
	if ex.Err != nil {
		return Abort{Err: &StopError{Kind: ErrPageAbort, Site: site, Page: page, Err: ex.Err}}
	}

	added := o.accept(ctx, r, ex.Jobs)
	switch {
	case !r.in.Wants(len(r.state.Jobs)):
		return Done{Added: added, Reason: "results wanted reached"}
	case ex.Final && ex.Reason != "":
		return Done{Added: added, Reason: ex.Reason}
	case added == 0:
		return Done{Added: added, Reason: "no new jobs"}
	case ex.Final:
		return Done{Added: added, Reason: "last page"}
	}
	return Continue{Added: added}
}

// accept converts, filters and de-duplicates raw jobs into the run state and
// returns how many were added.
func (o *Orchestrator) accept(ctx context.Context, r *run, raws []RawJob) int {
	enricher, canEnrich := o.source.(Enricher)
	canEnrich = canEnrich && r.in.FetchDescription

	added := 0
	for _, raw := range raws {
		if !r.in.Wants(len(r.state.Jobs)) {
			break
		}
		job, err := r.conv.toJob(raw)
		if err != nil {
			r.state.Rejected++
			r.logger.Debug().Err(err).Msg("raw job rejected")
			continue
		}
		if r.state.seen(job) {
			r.state.Duplicates++
			continue
		}
		if canEnrich {
			if enriched, ok := o.enrich(ctx, r, enricher, raw); ok {
				job = enriched
			}
		}
		if !matchesFilters(r.in, job) {
			r.state.Filtered++
			continue
		}
		r.state.add(job)
		added++
	}
	return added
}

func (o *Orchestrator) enrich(ctx context.Context, r *run, enricher Enricher, raw RawJob) (models.Job, bool) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.Job{}, false
	}
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.RequestTimeout)
	defer cancel()
	job, err := r.conv.toJob(enricher.Enrich(reqCtx, o.fetcher, raw))
	if err != nil {
		return models.Job{}, false
	}
	return job, true
}

// fetch runs detached from ctx cancellation so a run-level timeout stops the
// loop between pages rather than mid-request.
func (o *Orchestrator) fetch(ctx context.Context, target string, headers map[string]string) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.RequestTimeout)
	defer cancel()
	return o.fetcher.Get(reqCtx, target, headers)
}

func (o *Orchestrator) extract(page Page) (ex Extraction) {
	defer func() {
		if rec := recover(); rec != nil {
			ex = Extraction{Err: fmt.Errorf("extractor panic: %v", rec)}
		}
	}()
	return o.source.Extract(page)
}

func matchesFilters(in models.ScraperInput, job models.Job) bool {
	if in.RemoteOnly && !job.Remote {
		return false
	}
	if in.JobType != "" && len(job.JobTypes) > 0 && !slices.Contains(job.JobTypes, in.JobType) {
		return false
	}
	return true
}

func classifyStatus(resp *Response) error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil
	case resp.Status == http.StatusPaymentRequired:
		return ErrSiteUnavailable
	case resp.Status == http.StatusTooManyRequests && resp.Via != "":
		return ErrSiteUnavailable
	default:
		return ErrPageAbort
	}
}

func pageLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func interrupted(site models.Site, ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: run interrupted: %w", site, ctxErr)
	}
	return fmt.Errorf("%s: run interrupted: %w: %v", site, context.DeadlineExceeded, err)
}
