// Package server exposes searches over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/export"
	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/scraper"
	"github.com/jimezsa/jobharvest/internal/tasks"
)

const maxBodyBytes = 1 << 20

// Searcher runs a validated search.
type Searcher interface {
	Search(ctx context.Context, in models.ScraperInput) (aggregate.Result, error)
}

// Sink receives the jobs of every successful search.
type Sink interface {
	SaveJobs(ctx context.Context, jobs []models.Job) (int, error)
}

type Options struct {
	Version  string
	Notifier tasks.Notifier
	Sink     Sink
	// Retention bounds how long finished async tasks stay queryable.
	Retention time.Duration
}

type Server struct {
	searcher Searcher
	sink     Sink
	tasks    *tasks.Store
	runner   *tasks.Runner
	logger   zerolog.Logger
	version  string
	started  time.Time
	handler  http.Handler
}

func New(searcher Searcher, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		searcher: searcher,
		sink:     opts.Sink,
		tasks:    tasks.NewStore(opts.Retention),
		logger:   logger,
		version:  opts.Version,
		started:  time.Now(),
	}
	s.runner = tasks.NewRunner(s.tasks, s.search, opts.Notifier, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/jobs/sites", s.handleSites)
	mux.HandleFunc("POST /api/jobs/search", s.handleSearch)
	mux.HandleFunc("POST /api/jobs/search/async", s.handleSearchAsync)
	mux.HandleFunc("GET /api/jobs/status/{id}", s.handleStatus)
	mux.HandleFunc("POST /api/jobs/search/csv", s.handleSearchCSV)
	s.handler = s.withRecover(s.withLogging(mux))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// requests and background searches.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.runner.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.runner.Shutdown()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) search(ctx context.Context, in models.ScraperInput) (aggregate.Result, error) {
	res, err := s.searcher.Search(ctx, in)
	if err != nil {
		return res, err
	}
	if s.sink != nil && len(res.Jobs) > 0 {
		saved, err := s.sink.SaveJobs(ctx, res.Jobs)
		if err != nil {
			s.logger.Warn().Err(err).Msg("storing jobs failed")
		} else {
			s.logger.Debug().Int("saved", saved).Msg("jobs stored")
		}
	}
	return res, nil
}

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		Version:       s.version,
		UptimeSeconds: math.Round(time.Since(s.started).Seconds()*100) / 100,
	})
}

type siteInfo struct {
	Name           string  `json:"name"`
	DefaultCountry string  `json:"default_country,omitempty"`
	DelaySeconds   float64 `json:"delay_seconds"`
	MaxRequests    int     `json:"max_requests"`
	Enrichment     bool    `json:"detail_pages"`
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sources := scraper.Sources()
	sites := make([]siteInfo, 0, len(sources))
	for _, src := range sources {
		cfg := scraper.ConfigFor(src.Profile(), scraper.Config{})
		_, enriches := src.(scraper.Enricher)
		sites = append(sites, siteInfo{
			Name:           string(src.Site()),
			DefaultCountry: src.Profile().DefaultCountry,
			DelaySeconds:   cfg.Delay.Seconds(),
			MaxRequests:    cfg.MaxRequests,
			Enrichment:     enriches,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites, "total": len(sites)})
}

type searchResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	TotalJobs  int                 `json:"total_jobs"`
	Jobs       []models.Job        `json:"jobs"`
	Stats      aggregate.Stats     `json:"stats"`
	Parameters models.ScraperInput `json:"search_parameters"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	res, err := s.search(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Success:    true,
		Message:    "Jobs retrieved successfully",
		TotalJobs:  res.Stats.TotalJobs,
		Jobs:       res.Jobs,
		Stats:      res.Stats,
		Parameters: in,
	})
}

func (s *Server) handleSearchAsync(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		s.writeError(w, err)
		return
	}
	task := s.runner.Submit(in, req.CallbackURL)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   task.ID,
		"status":   string(task.Status),
		"message":  "Job started. Poll the status URL for progress.",
		"poll_url": "/api/jobs/status/" + task.ID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *Server) handleSearchCSV(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	res, err := s.search(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	filename := unsafeFilename.ReplaceAllString(r.URL.Query().Get("filename"), "_")
	if filename == "" || filename == "_" {
		filename = "jobs_" + time.Now().UTC().Format("20060102_150405")
	}
	if len(filename) < 4 || filename[len(filename)-4:] != ".csv" {
		filename += ".csv"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, res.Jobs, ','); err != nil {
		s.logger.Warn().Err(err).Msg("csv write failed")
	}
}

func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (models.ScraperInput, bool) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return models.ScraperInput{}, false
	}
	in, err := req.Input()
	if err != nil {
		s.writeError(w, err)
		return models.ScraperInput{}, false
	}
	return in, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
