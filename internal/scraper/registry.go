package scraper

import (
	"github.com/jimezsa/jobharvest/internal/models"
)

var sources = map[models.Site]func() Source{
	models.SiteLinkedIn:  func() Source { return NewLinkedIn() },
	models.SiteIndeed:    func() Source { return NewIndeed() },
	models.SiteGlassdoor: func() Source { return NewGlassdoor() },
	models.SiteStepstone: func() Source { return NewStepstone() },
	models.SiteGupy:      func() Source { return NewGupy() },
	models.SiteWellfound: func() Source { return NewWellfound() },
}

// Lookup returns the source registered for site.
func Lookup(site models.Site) (Source, bool) {
	build, ok := sources[site]
	if !ok {
		return nil, false
	}
	return build(), true
}

// Sources returns one source per supported site, in canonical site order.
func Sources() []Source {
	out := make([]Source, 0, len(sources))
	for _, site := range models.AllSites() {
		if src, ok := Lookup(site); ok {
			out = append(out, src)
		}
	}
	return out
}

// NormalizeSites resolves user supplied site names, dropping duplicates and
// returning the names it could not resolve.
func NormalizeSites(names []string) ([]models.Site, []string) {
	var (
		sites   []models.Site
		unknown []string
	)
	seen := map[models.Site]struct{}{}
	for _, name := range names {
		site, ok := models.ParseSite(name)
		if !ok {
			if name != "" {
				unknown = append(unknown, name)
			}
			continue
		}
		if _, dup := seen[site]; dup {
			continue
		}
		seen[site] = struct{}{}
		sites = append(sites, site)
	}
	return sites, unknown
}
