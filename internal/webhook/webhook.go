// Package webhook posts the terminal status of asynchronous searches to the
// callback URL given at submission.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobharvest/internal/aggregate"
	"github.com/jimezsa/jobharvest/internal/tasks"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
	defaultBackoff = time.Second
)

var ErrDelivery = errors.New("webhook delivery failed")

// Payload is the body posted to the callback URL.
type Payload struct {
	JobID     string            `json:"job_id"`
	Status    tasks.Status      `json:"status"`
	Result    *aggregate.Result `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Notifier struct {
	client  *http.Client
	retries int
	backoff time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

var _ tasks.Notifier = (*Notifier)(nil)

func New(timeout time.Duration, retries int, logger zerolog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Notifier{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: defaultBackoff,
		logger:  logger,
		now:     time.Now,
	}
}

// Notify posts the task outcome, retrying transport errors and 5xx answers
// with a doubling backoff. 4xx answers are final.
func (n *Notifier) Notify(ctx context.Context, task tasks.Task) error {
	if task.CallbackURL == "" {
		return nil
	}
	body, err := json.Marshal(Payload{
		JobID:     task.ID,
		Status:    task.Status,
		Result:    task.Result,
		Error:     task.Error,
		Timestamp: n.now().UTC(),
	})
	if err != nil {
		return err
	}

	wait := n.backoff
	var lastErr error
	for attempt := 1; attempt <= n.retries; attempt++ {
		retry, err := n.post(ctx, task.CallbackURL, body)
		if err == nil {
			n.logger.Debug().Str("task", task.ID).Int("attempt", attempt).Msg("webhook delivered")
			return nil
		}
		lastErr = err
		if !retry || attempt == n.retries {
			break
		}
		n.logger.Debug().Err(err).Str("task", task.ID).Int("attempt", attempt).Msg("webhook retry")
		if err := sleepContext(ctx, wait); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		wait *= 2
	}
	return fmt.Errorf("%w: %v", ErrDelivery, lastErr)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("callback answered %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("callback answered %d", resp.StatusCode)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
