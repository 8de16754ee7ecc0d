package models

// DescriptionFormat selects how descriptions are rendered.
type DescriptionFormat string

const (
	FormatMarkdown DescriptionFormat = "markdown"
	FormatHTML     DescriptionFormat = "html"
	FormatPlain    DescriptionFormat = "plain"
)

const (
	DefaultResultsWanted = 30
	MaxResultsWanted     = 500
)

// ScraperInput holds the parameters of one search. It is not modified once a run starts.
type ScraperInput struct {
	SearchTerm        string            `json:"search_term" validate:"required"`
	Location          string            `json:"location,omitempty"`
	Country           string            `json:"country,omitempty"`
	ResultsWanted     int               `json:"results_wanted" validate:"min=1,max=500"`
	HoursOld          int               `json:"hours_old,omitempty" validate:"min=0"`
	Sites             []Site            `json:"sites" validate:"required,min=1,unique,dive,oneof=linkedin indeed glassdoor stepstone gupy wellfound"`
	DescriptionFormat DescriptionFormat `json:"description_format" validate:"oneof=markdown html plain"`
	Verbosity         int               `json:"verbose" validate:"min=0,max=2"`
	FetchDescription  bool              `json:"linkedin_fetch_description,omitempty"`
	RemoteOnly        bool              `json:"remote_only,omitempty"`
	JobType           JobType           `json:"job_type,omitempty" validate:"omitempty,oneof=fulltime parttime contract internship temporary"`
	Proxies           ProxyPolicy       `json:"proxies"`
}

// WithDefaults fills zero values with the defaults used by the CLI and the API.
func (in ScraperInput) WithDefaults() ScraperInput {
	if in.ResultsWanted == 0 {
		in.ResultsWanted = DefaultResultsWanted
	}
	if in.DescriptionFormat == "" {
		in.DescriptionFormat = FormatMarkdown
	}
	if len(in.Sites) == 0 {
		in.Sites = AllSites()
	}
	return in
}

// Wants reports whether n accumulated jobs still fall short of the ceiling.
func (in ScraperInput) Wants(n int) bool {
	return in.ResultsWanted <= 0 || n < in.ResultsWanted
}
