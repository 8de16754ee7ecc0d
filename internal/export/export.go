package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"

	"github.com/jimezsa/jobharvest/internal/models"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

// ParseFormat resolves a format name; the empty string selects the table.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "tsv":
		return FormatTSV, nil
	case "table", "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func WriteJobs(w io.Writer, jobs []models.Job, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		return WriteCSV(w, jobs, ',')
	case FormatTSV:
		return WriteCSV(w, jobs, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, jobs)
	default:
		return writeTable(w, jobs, opts)
	}
}

func writeJSON(w io.Writer, jobs []models.Job) error {
	if jobs == nil {
		jobs = []models.Job{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

// WriteCSV writes one header row and one row per job.
func WriteCSV(w io.Writer, jobs []models.Job, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(CSVHeader()); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writer.Write(csvRow(job)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, jobs []models.Job, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, job := range jobs {
		fmt.Fprintln(tw, strings.Join(tableRow(job, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, jobs []models.Job) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, job := range jobs {
		urlLine := "  URL: -"
		if link := safe(job.URL); link != "" {
			urlLine = fmt.Sprintf("  URL: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", safe(job.Title), orDash(job.Company)),
			fmt.Sprintf("  Location: %s", orDash(job.Location.String())),
			fmt.Sprintf("  Site: %s", job.Site),
			urlLine,
		}
		if job.DirectURL != "" {
			lines = append(lines, fmt.Sprintf("  Apply: <%s>", safe(job.DirectURL)))
		}
		if job.Remote {
			lines = append(lines, "  Remote: yes")
		}
		if label := job.JobTypeLabel(); label != "" {
			lines = append(lines, fmt.Sprintf("  Type: %s", label))
		}
		if pay := FormatCompensation(job.Compensation); pay != "" {
			lines = append(lines, fmt.Sprintf("  Salary: %s", pay))
		}
		if job.DatePosted != nil {
			lines = append(lines, fmt.Sprintf("  Posted: %s", job.DatePosted))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// CSVHeader lists the CSV columns in output order.
func CSVHeader() []string {
	return []string{
		"id",
		"site",
		"job_url",
		"job_url_direct",
		"title",
		"company",
		"location",
		"date_posted",
		"job_type",
		"interval",
		"min_amount",
		"max_amount",
		"currency",
		"is_remote",
		"emails",
		"description",
	}
}

func csvRow(job models.Job) []string {
	posted := ""
	if job.DatePosted != nil {
		posted = job.DatePosted.String()
	}
	var interval, minAmount, maxAmount, currency string
	if comp := job.Compensation; comp != nil {
		interval = string(comp.Interval)
		minAmount = formatAmount(comp.MinAmount)
		maxAmount = formatAmount(comp.MaxAmount)
		currency = comp.Currency
	}
	return []string{
		job.ID,
		string(job.Site),
		job.URL,
		job.DirectURL,
		job.Title,
		job.Company,
		job.Location.String(),
		posted,
		job.JobTypeLabel(),
		interval,
		minAmount,
		maxAmount,
		currency,
		strconv.FormatBool(job.Remote),
		strings.Join(job.Emails, ", "),
		job.Description,
	}
}

// FormatCompensation renders a range like "EUR 60000-80000/yearly".
func FormatCompensation(comp *models.Compensation) string {
	if comp == nil {
		return ""
	}
	amount := formatAmount(comp.MinAmount)
	if comp.MaxAmount != comp.MinAmount {
		amount += "-" + formatAmount(comp.MaxAmount)
	}
	return fmt.Sprintf("%s %s/%s", comp.Currency, amount, comp.Interval)
}

func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func orDash(value string) string {
	if value = safe(value); value == "" {
		return "-"
	}
	return value
}

func tableHeader() []string {
	return []string{
		"site",
		"title",
		"company",
		"location",
		"url",
	}
}

func tableRow(job models.Job, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := safe(job.URL)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		if opts.ColorEnabled {
			displayURL = output.String(displayURL).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	return []string{
		string(job.Site),
		safe(job.Title),
		orDash(job.Company),
		orDash(job.Location.String()),
		displayURL,
	}
}

func hyperlink(target string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + target + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
