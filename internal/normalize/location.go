package normalize

import (
	"regexp"
	"strings"

	"github.com/jimezsa/jobharvest/internal/models"
)

var countryNames = map[string]struct{}{}

func init() {
	for _, name := range []string{
		"argentina", "australia", "austria", "belgium", "brasil", "brazil", "canada", "chile",
		"colombia", "czech republic", "czechia", "denmark", "deutschland", "espana", "spain",
		"finland", "france", "germany", "india", "ireland", "italy", "italia", "japan", "mexico",
		"netherlands", "norway", "poland", "portugal", "romania", "singapore", "sweden",
		"switzerland", "schweiz", "uk", "united kingdom", "great britain", "england", "us", "usa",
		"united states", "united states of america", "uruguay", "peru", "osterreich",
	} {
		countryNames[name] = struct{}{}
	}
}

var (
	parenthetical  = regexp.MustCompile(`\s*\([^)]*\)`)
	commaSeparator = regexp.MustCompile(`\s*,\s*`)
	dashSeparator  = regexp.MustCompile(`\s+[-–—/|]\s+`)
)

// IsCountry reports whether value names a country known to the location parser.
func IsCountry(value string) bool {
	_, ok := countryNames[strings.Trim(Fold(value), " .")]
	return ok
}

// ParseLocation splits free-text locations into city, state and country.
// Comma separated parts are tried first, then dash separated parts; a single
// token becomes the city unless it names a country. defaultCountry is attached
// when the text carries no country, which is how single-country boards such as
// Gupy report locations.
func ParseLocation(text string, defaultCountry string) models.Location {
	text = CleanText(text)
	text = strings.TrimSpace(parenthetical.ReplaceAllString(text, ""))
	loc := models.Location{}

	parts := splitLocationParts(text)
	if len(parts) > 0 && IsCountry(parts[len(parts)-1]) {
		loc.Country = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 1 {
		if dashed := splitOn(dashSeparator, parts[0]); len(dashed) > 1 {
			parts = dashed
		}
	}

	switch len(parts) {
	case 0:
	case 1:
		loc.City = parts[0]
	default:
		loc.City = parts[0]
		loc.State = parts[1]
		if loc.Country == "" && len(parts) > 2 {
			loc.Country = parts[len(parts)-1]
		}
	}

	if loc.Country == "" {
		loc.Country = defaultCountry
	}
	return loc
}

func splitLocationParts(text string) []string {
	if text == "" {
		return nil
	}
	var parts []string
	if strings.Contains(text, ",") {
		parts = splitOn(commaSeparator, text)
	} else {
		parts = splitOn(dashSeparator, text)
	}
	out := parts[:0]
	for _, part := range parts {
		if IsRemoteOnly(part) {
			continue
		}
		out = append(out, part)
	}
	return out
}

func splitOn(re *regexp.Regexp, text string) []string {
	raw := re.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
