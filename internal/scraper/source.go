package scraper

import (
	"context"
	"time"

	"github.com/jimezsa/jobharvest/internal/models"
)

// Response is the result of one GET request.
type Response struct {
	Status int
	Body   []byte
	URL    string
	// Via names an intermediary service (render service, gateway) that
	// produced the response; empty when the board answered directly.
	Via string
}

// Fetcher issues GET requests. Implementations own connection pooling,
// cookies and proxies; the orchestrator never retries a failed page.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// Page is one fetched listing page handed to an extractor.
type Page struct {
	Index int
	URL   string
	Body  []byte
	Input models.ScraperInput
}

// Extraction is what an extractor found on one page.
type Extraction struct {
	Jobs []RawJob
	// Final is set when pagination metadata shows this was the last page.
	Final bool
	// Skipped counts job elements that failed extraction.
	Skipped int
	// Rejected counts entries missing required fields.
	Rejected int
	// Filtered counts valid entries dropped by a client side search filter.
	Filtered int
	// Err is a page level failure; the orchestrator stops paginating.
	Err error
	// Reason explains a Final page that ended the run early.
	Reason string
}

// Extractor turns raw page content into raw jobs. It must not panic on
// malformed markup.
type Extractor interface {
	Extract(page Page) Extraction
}

// Strategy is one URL pattern for a search, tried page by page.
type Strategy struct {
	Name string
	// MaxPages bounds this strategy; zero leaves only the run's request ceiling.
	MaxPages int
	URL      func(page int) string
	Headers  map[string]string
}

// Profile carries per-site conversion and pacing defaults.
type Profile struct {
	// DefaultCountry is attached to locations of single-country boards.
	DefaultCountry  string
	DefaultInterval models.Interval
	IDPrefix        string
	Delay           time.Duration
	MaxRequests     int
}

// Source is the strategy object for one job board.
type Source interface {
	Extractor
	Site() models.Site
	Profile() Profile
	// Strategies returns the primary URL pattern followed by broader fallbacks.
	Strategies(in models.ScraperInput) []Strategy
}

// Enricher is implemented by sources that can complete a raw job from its
// detail page.
type Enricher interface {
	Enrich(ctx context.Context, fetcher Fetcher, raw RawJob) RawJob
}
