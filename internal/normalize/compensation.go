package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jimezsa/jobharvest/internal/models"
)

const currencyToken = `(r\$|us\$|c\$|a\$|\$|€|£|₹|eur|usd|gbp|brl|cad|aud|inr)?`

// Groups: 1 currency before the lower bound, 2 lower bound, 3 its suffix,
// 4 currency after it, 5 currency before the upper bound, 6 upper bound,
// 7 its suffix.
var salaryRange = regexp.MustCompile(
	currencyToken + `\s*(\d[\d.,]*)\s*(k|m)?\b\s*` + currencyToken +
		`(?:\s*(?:-|–|—|to|a|ate|bis)\s*` + currencyToken + `\s*(\d[\d.,]*)\s*(k|m)?\b)?`,
)

// A lone amount after one of these is a ceiling, not a salary.
var ceilingPrefix = regexp.MustCompile(`\b(?:up ?to|ate|bis zu|hasta|max\.?|maximum)\s*$`)

type currencyMarker struct {
	code    string
	symbols []string
	words   *regexp.Regexp
}

// Checked in order: "R$" must win over "$".
var currencyMarkers = []currencyMarker{
	{"BRL", []string{"r$"}, wordPattern([]string{"brl", "reais"})},
	{"CAD", []string{"c$"}, wordPattern([]string{"cad"})},
	{"AUD", []string{"a$"}, wordPattern([]string{"aud"})},
	{"USD", []string{"us$"}, wordPattern([]string{"usd"})},
	{"EUR", []string{"€"}, wordPattern([]string{"eur", "euro", "euros"})},
	{"GBP", []string{"£"}, wordPattern([]string{"gbp"})},
	{"INR", []string{"₹"}, wordPattern([]string{"inr"})},
	{"USD", []string{"$"}, nil},
}

var intervalPatterns = []struct {
	interval models.Interval
	pattern  *regexp.Regexp
}{
	{models.IntervalHourly, wordPattern([]string{"hour", "hourly", "hr", "/hr", "/h", "hora", "por hora", "stunde", "stundenlohn"})},
	{models.IntervalDaily, wordPattern([]string{"day", "daily", "dia", "diaria", "tag", "tagessatz"})},
	{models.IntervalWeekly, wordPattern([]string{"week", "weekly", "semana", "semanal", "woche"})},
	{models.IntervalMonthly, wordPattern([]string{"month", "monthly", "/mo", "mes", "mensal", "mensual", "monat", "monatlich"})},
	{models.IntervalYearly, wordPattern([]string{"year", "yearly", "annual", "annually", "/yr", "yr", "ano", "anual", "jahr", "jahrlich", "p.a.", "per annum"})},
}

// ParseCompensation reads salary text such as "$50k - $80k" or
// "R$ 5.000 a R$ 8.000 por mês". Text without a recognizable currency or
// amount, or with a reversed range, yields nil. defaultInterval applies when
// the text names no pay period.
func ParseCompensation(text string, defaultInterval models.Interval) *models.Compensation {
	folded := Fold(CleanText(text))
	if folded == "" {
		return nil
	}
	if detectCurrency(folded) == "" {
		return nil
	}
	m, start := salaryMatch(folded)
	if m == nil {
		return nil
	}
	currency := detectCurrency(m[0])
	if currency == "" {
		return nil
	}
	if m[6] == "" && ceilingPrefix.MatchString(folded[:start]) {
		return nil
	}

	minAmount, ok := parseAmount(m[2])
	if !ok {
		return nil
	}
	maxAmount := minAmount
	minSuffix, maxSuffix := m[3], m[3]
	if m[6] != "" {
		if maxAmount, ok = parseAmount(m[6]); !ok {
			return nil
		}
		maxSuffix = m[7]
		// "$50 - 80k": the suffix on the upper bound applies to both.
		if minSuffix == "" && maxSuffix != "" && minAmount < 1000 {
			minSuffix = maxSuffix
		}
	}
	minAmount *= multiplier(minSuffix)
	maxAmount *= multiplier(maxSuffix)

	if minAmount <= 0 || minAmount > maxAmount {
		return nil
	}

	interval := defaultInterval
	for _, candidate := range intervalPatterns {
		if candidate.pattern.MatchString(folded) {
			interval = candidate.interval
			break
		}
	}
	if interval == "" {
		interval = models.IntervalYearly
	}

	return &models.Compensation{
		Interval:  interval,
		MinAmount: minAmount,
		MaxAmount: maxAmount,
		Currency:  currency,
	}
}

// salaryMatch returns the first amount in the text and the offset where it
// starts. The amount must carry a currency right before or after it; any
// other leading number (a PTO count, a 401k plan) makes the text ambiguous.
func salaryMatch(folded string) ([]string, int) {
	loc := salaryRange.FindStringSubmatchIndex(folded)
	if loc == nil {
		return nil, 0
	}
	m := make([]string, 8)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = folded[loc[2*i]:loc[2*i+1]]
		}
	}
	if m[1] == "" && m[4] == "" {
		return nil, 0
	}
	return m, loc[0]
}

func detectCurrency(folded string) string {
	for _, candidate := range currencyMarkers {
		for _, symbol := range candidate.symbols {
			if strings.Contains(folded, symbol) {
				return candidate.code
			}
		}
		if candidate.words != nil && candidate.words.MatchString(folded) {
			return candidate.code
		}
	}
	return ""
}

// parseAmount handles both "50,000.00" and "50.000,00" grouping.
func parseAmount(raw string) (float64, bool) {
	raw = strings.TrimRight(raw, ".,")
	if raw == "" {
		return 0, false
	}
	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		raw = normalizeSeparator(raw, ",")
	case lastDot >= 0:
		raw = normalizeSeparator(raw, ".")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// normalizeSeparator treats sep as a thousands separator when every group
// after the first has exactly three digits, and as a decimal point otherwise.
func normalizeSeparator(raw string, sep string) string {
	groups := strings.Split(raw, sep)
	thousands := len(groups) > 1
	for _, group := range groups[1:] {
		if len(group) != 3 {
			thousands = false
			break
		}
	}
	if thousands {
		return strings.Join(groups, "")
	}
	if len(groups) > 2 {
		return strings.Join(groups[:len(groups)-1], "") + "." + groups[len(groups)-1]
	}
	return strings.Join(groups, ".")
}

func multiplier(suffix string) float64 {
	switch suffix {
	case "k":
		return 1_000
	case "m":
		return 1_000_000
	default:
		return 1
	}
}
