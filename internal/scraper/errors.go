package scraper

import (
	"errors"
	"fmt"

	"github.com/jimezsa/jobharvest/internal/models"
)

var (
	// ErrParseSkip marks a single job element that could not be extracted.
	ErrParseSkip = errors.New("job element skipped")
	// ErrPageAbort stops pagination after a page level parse or transport failure.
	ErrPageAbort = errors.New("page aborted")
	// ErrSiteUnavailable means a dependency refused service (payment required,
	// rate limited by an intermediary, proxy pool exhausted).
	ErrSiteUnavailable = errors.New("site unavailable")
	// ErrValidationReject marks extracted data missing a required field.
	ErrValidationReject = errors.New("job rejected")
)

// StopError records why a site run stopped before finishing normally.
type StopError struct {
	Kind   error
	Site   models.Site
	Page   int
	Status int
	Err    error
}

func (e *StopError) Error() string {
	msg := fmt.Sprintf("%s: %v on page %d", e.Site, e.Kind, e.Page+1)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StopError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UnavailableError lets transports flag failures that make the site unusable
// for the rest of the run, such as an exhausted proxy pool.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return e.Err.Error()
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrSiteUnavailable, e.Err}
}
