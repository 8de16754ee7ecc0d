package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var absoluteLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

type dateUnit int

const (
	unitMinute dateUnit = iota
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

var unitWords = map[string]dateUnit{}

func init() {
	register := func(unit dateUnit, words ...string) {
		for _, word := range words {
			unitWords[word] = unit
		}
	}
	register(unitMinute, "m", "min", "mins", "minute", "minutes", "minuto", "minutos", "minuten")
	register(unitHour, "h", "hr", "hrs", "hour", "hours", "hora", "horas", "stunde", "stunden")
	register(unitDay, "d", "day", "days", "dia", "dias", "tag", "tage", "tagen")
	register(unitWeek, "w", "wk", "wks", "week", "weeks", "semana", "semanas", "woche", "wochen")
	register(unitMonth, "mo", "mos", "month", "months", "mes", "meses", "monat", "monate", "monaten")
	register(unitYear, "y", "yr", "yrs", "year", "years", "ano", "anos", "jahr", "jahre", "jahren")
}

var (
	numericRelative = regexp.MustCompile(`(\d+)\s*([a-z]+)\b`)
	wordRelative    = regexp.MustCompile(`\b(a|an|one|um|uma|un|una|ein|eine|einem|einer)\s+([a-z]+)\b`)
	openEnded       = regexp.MustCompile(`\d+\s*\+`)
)

var (
	todayWords     = wordPattern([]string{"today", "just now", "just posted", "now", "hoje", "agora", "hoy", "heute", "aujourd'hui", "recem publicada"})
	yesterdayWords = wordPattern([]string{"yesterday", "ontem", "ayer", "gestern"})
	lastWeekWords  = wordPattern([]string{"last week", "semana passada", "semana pasada", "letzte woche"})
	lastMonthWords = wordPattern([]string{"last month", "mes passado", "mes pasado", "letzten monat"})
)

// ResolveDate converts a posting date to a calendar date (UTC midnight).
// Absolute timestamps are parsed directly; relative expressions such as
// "3 days ago", "há 2 semanas" or "vor 3 Tagen" are resolved against anchor.
// Open-ended values like "30+ days ago" and unrecognized text are reported as
// unresolved instead of guessed.
func ResolveDate(text string, anchor time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if ts, ok := parseAbsolute(text); ok {
		return dateOnly(ts), true
	}

	folded := Fold(text)
	if openEnded.MatchString(folded) {
		return time.Time{}, false
	}
	for _, m := range numericRelative.FindAllStringSubmatch(folded, -1) {
		unit, ok := unitWords[m[2]]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return dateOnly(shift(anchor, unit, n)), true
	}
	if m := wordRelative.FindStringSubmatch(folded); m != nil {
		if unit, ok := unitWords[m[2]]; ok {
			return dateOnly(shift(anchor, unit, 1)), true
		}
	}
	switch {
	case yesterdayWords.MatchString(folded):
		return dateOnly(anchor.AddDate(0, 0, -1)), true
	case lastWeekWords.MatchString(folded):
		return dateOnly(anchor.AddDate(0, 0, -7)), true
	case lastMonthWords.MatchString(folded):
		return dateOnly(anchor.AddDate(0, -1, 0)), true
	case todayWords.MatchString(folded):
		return dateOnly(anchor), true
	}
	return time.Time{}, false
}

func parseAbsolute(text string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, true
		}
	}
	if isDigits(text) {
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		switch len(text) {
		case 13:
			return time.UnixMilli(value).UTC(), true
		case 10:
			return time.Unix(value, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

func shift(anchor time.Time, unit dateUnit, n int) time.Time {
	switch unit {
	case unitMinute:
		return anchor.Add(-time.Duration(n) * time.Minute)
	case unitHour:
		return anchor.Add(-time.Duration(n) * time.Hour)
	case unitDay:
		return anchor.AddDate(0, 0, -n)
	case unitWeek:
		return anchor.AddDate(0, 0, -7*n)
	case unitMonth:
		return anchor.AddDate(0, -n, 0)
	default:
		return anchor.AddDate(-n, 0, 0)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
