// Package tasks tracks asynchronous searches from submission to a terminal
// status.
package tasks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/models"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
)

type Task struct {
	ID          string              `json:"job_id"`
	Status      Status              `json:"status"`
	Input       models.ScraperInput `json:"request"`
	CallbackURL string              `json:"callback_url,omitempty"`
	Result      *aggregate.Result   `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Store keeps tasks in memory. Finished tasks older than the retention
// window are dropped on the next Create.
type Store struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	retention time.Duration
	now       func() time.Time
}

const DefaultRetention = 24 * time.Hour

func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		tasks:     map[string]*Task{},
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a pending task.
func (s *Store) Create(in models.ScraperInput, callbackURL string) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)
	task := &Task{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		Input:       in,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[task.ID] = task
	return *task
}

func (s *Store) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *task, nil
}

func (s *Store) Start(id string) (Task, error) {
	return s.transition(id, StatusPending, StatusRunning, func(*Task) {})
}

func (s *Store) Complete(id string, result aggregate.Result) (Task, error) {
	return s.transition(id, StatusRunning, StatusCompleted, func(t *Task) {
		t.Result = &result
	})
}

func (s *Store) Fail(id string, cause error) (Task, error) {
	return s.transition(id, StatusRunning, StatusFailed, func(t *Task) {
		if cause != nil {
			t.Error = cause.Error()
		}
	})
}

func (s *Store) transition(id string, from, to Status, apply func(*Task)) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if task.Status != from {
		return *task, fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, id, task.Status, from)
	}
	apply(task)
	task.Status = to
	task.UpdatedAt = s.now()
	return *task, nil
}

func (s *Store) evictLocked(now time.Time) {
	for id, task := range s.tasks {
		if task.Status.Terminal() && now.Sub(task.UpdatedAt) > s.retention {
			delete(s.tasks, id)
		}
	}
}
