package tasks

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/models"
)

// SearchFunc runs one search to completion.
type SearchFunc func(ctx context.Context, in models.ScraperInput) (aggregate.Result, error)

// Notifier is told about every task that reaches a terminal status and
// carries a callback URL.
type Notifier interface {
	Notify(ctx context.Context, task Task) error
}

// Runner executes submitted tasks in the background.
type Runner struct {
	store    *Store
	search   SearchFunc
	notifier Notifier
	logger   zerolog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(store *Store, search SearchFunc, notifier Notifier, logger zerolog.Logger) *Runner {
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    store,
		search:   search,
		notifier: notifier,
		logger:   logger,
		base:     base,
		cancel:   cancel,
	}
}

// Submit stores a pending task and starts it.
func (r *Runner) Submit(in models.ScraperInput, callbackURL string) Task {
	task := r.store.Create(in, callbackURL)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(task.ID, in)
	}()
	return task
}

func (r *Runner) run(id string, in models.ScraperInput) {
	logger := r.logger.With().Str("task", id).Logger()
	if _, err := r.store.Start(id); err != nil {
		logger.Error().Err(err).Msg("task not started")
		return
	}

	var (
		final Task
		err   error
	)
	result, searchErr := r.search(r.base, in)
	if searchErr != nil {
		final, err = r.store.Fail(id, searchErr)
		logger.Warn().Err(searchErr).Msg("task failed")
	} else {
		final, err = r.store.Complete(id, result)
		logger.Info().Int("jobs", result.Stats.TotalJobs).Msg("task completed")
	}
	if err != nil {
		logger.Error().Err(err).Msg("task state not recorded")
		return
	}

	if final.CallbackURL == "" || r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(r.base, final); err != nil {
		logger.Warn().Err(err).Str("callback", final.CallbackURL).Msg("webhook delivery failed")
	}
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels running searches and waits for them to return.
func (r *Runner) Shutdown() {
	r.cancel()
	r.wg.Wait()
}
