package scraper

import (
	"time"

	"github.com/jimezsa/jobharvest/internal/models"
)

// State is a step of the per-site state machine.
type State string

const (
	StateInit       State = "INIT"
	StateRequesting State = "REQUESTING"
	StateParsing    State = "PARSING"
	StateDone       State = "DONE"
	StateError      State = "ERROR"
)

// PageOutcome is the verdict on one parsed page: Continue, Done or Abort.
type PageOutcome interface {
	pageOutcome()
}

// Continue asks for the next page.
type Continue struct {
	Added int
}

// Done ends the strategy normally.
type Done struct {
	Added  int
	Reason string
}

// Abort ends the run with partial results.
type Abort struct {
	Err error
}

func (Continue) pageOutcome() {}
func (Done) pageOutcome()     {}
func (Abort) pageOutcome()    {}

// RunState is the mutable context of a single orchestrator run. It is never
// shared between runs.
type RunState struct {
	Site       models.Site
	State      State
	Jobs       []models.Job
	Requests   int
	Skipped    int
	Rejected   int
	Filtered   int
	Duplicates int

	seenIDs  map[string]struct{}
	seenURLs map[string]struct{}
}

func newRunState(site models.Site) *RunState {
	return &RunState{
		Site:     site,
		State:    StateInit,
		seenIDs:  map[string]struct{}{},
		seenURLs: map[string]struct{}{},
	}
}

func (r *RunState) seen(job models.Job) bool {
	if _, ok := r.seenIDs[job.ID]; ok {
		return true
	}
	if job.URL == "" {
		return false
	}
	_, ok := r.seenURLs[job.URL]
	return ok
}

func (r *RunState) add(job models.Job) {
	r.seenIDs[job.ID] = struct{}{}
	if job.URL != "" {
		r.seenURLs[job.URL] = struct{}{}
	}
	r.Jobs = append(r.Jobs, job)
}

// RunResult is what one site run hands back to the aggregation layer.
type RunResult struct {
	Site     models.Site
	Jobs     []models.Job
	State    State
	Strategy string
	// Err is set when the run stopped early; it wraps ErrPageAbort,
	// ErrSiteUnavailable or the context error.
	Err error
	// Partial is true whenever the run did not reach DONE.
	Partial    bool
	Requests   int
	Skipped    int
	Rejected   int
	Filtered   int
	Duplicates int
	Elapsed    time.Duration
}
