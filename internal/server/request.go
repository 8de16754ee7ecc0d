package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/network"
	"github.com/jimezsa/jobharvest/internal/scraper"
)

const defaultHoursOld = 168

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// SearchRequest is the JSON body of the search endpoints.
type SearchRequest struct {
	SearchTerm        string   `json:"search_term" validate:"required"`
	Location          string   `json:"location"`
	Sites             []string `json:"sites"`
	ResultsWanted     int      `json:"results_wanted" validate:"omitempty,min=1,max=500"`
	HoursOld          *int     `json:"hours_old" validate:"omitempty,min=1"`
	Country           string   `json:"country_indeed"`
	FetchDescription  bool     `json:"linkedin_fetch_description"`
	DescriptionFormat string   `json:"description_format" validate:"omitempty,oneof=markdown html plain"`
	Verbose           int      `json:"verbose" validate:"min=0,max=2"`
	IsRemote          bool     `json:"is_remote"`
	JobType           string   `json:"job_type"`
	UseProxies        bool     `json:"use_proxies"`
	Proxies           []string `json:"proxies"`
	CallbackURL       string   `json:"callback_url" validate:"omitempty,http_url"`
}

// Input validates the request and converts it to a scraper input with API
// defaults applied.
func (r SearchRequest) Input() (models.ScraperInput, error) {
	if err := validate.Struct(r); err != nil {
		return models.ScraperInput{}, validationError(err)
	}

	sites, unknown := scraper.NormalizeSites(r.Sites)
	if len(unknown) > 0 {
		return models.ScraperInput{}, &models.ValidationError{
			Fields: []string{"unknown sites: " + strings.Join(unknown, ", ")},
		}
	}

	if _, err := network.NewProxyPool(r.Proxies); err != nil {
		return models.ScraperInput{}, &models.ValidationError{Fields: []string{err.Error()}}
	}

	hours := defaultHoursOld
	if r.HoursOld != nil {
		hours = *r.HoursOld
	}
	in := models.ScraperInput{
		SearchTerm:        strings.TrimSpace(r.SearchTerm),
		Location:          strings.TrimSpace(r.Location),
		Country:           strings.TrimSpace(r.Country),
		ResultsWanted:     r.ResultsWanted,
		HoursOld:          hours,
		Sites:             sites,
		DescriptionFormat: models.DescriptionFormat(r.DescriptionFormat),
		Verbosity:         r.Verbose,
		FetchDescription:  r.FetchDescription,
		RemoteOnly:        r.IsRemote,
		JobType:           models.JobType(strings.ToLower(strings.TrimSpace(r.JobType))),
		Proxies:           models.ProxyPolicy{Enabled: r.UseProxies || len(r.Proxies) > 0, URLs: r.Proxies},
	}.WithDefaults()
	if err := in.Validate(); err != nil {
		return models.ScraperInput{}, err
	}
	return in, nil
}

func validationError(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &models.ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, fe.Field()+" failed "+fe.Tag())
	}
	return out
}
