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

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

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

// ParseFormat maps a user-supplied name to a Format.
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

func WriteJobs(w io.Writer, jobs []models.JobPosting, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		return writeCSV(w, jobs, ',')
	case FormatTSV:
		return writeCSV(w, jobs, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, jobs)
	default:
		return writeTable(w, jobs, opts)
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeCSV(w io.Writer, jobs []models.JobPosting, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader); err != nil {
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

func writeTable(w io.Writer, jobs []models.JobPosting, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "source\ttitle\tcompany\tlocation\turl")
	output := termenv.NewOutput(w)
	for _, job := range jobs {
		fmt.Fprintln(tw, strings.Join(tableRow(job, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, jobs []models.JobPosting) error {
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
			fmt.Sprintf("- **%s** (%s)", safe(job.Title), safe(job.Company)),
			fmt.Sprintf("  Location: %s", safe(job.Location)),
			fmt.Sprintf("  Source: %s", safe(job.Source)),
			urlLine,
		}
		if job.Remote {
			lines = append(lines, "  Remote: yes")
		}
		if job.JobType != "" {
			lines = append(lines, fmt.Sprintf("  Type: %s", safe(job.JobType)))
		}
		if !job.Salary.IsZero() {
			lines = append(lines, fmt.Sprintf("  Salary: %s", job.Salary))
		}
		if job.PostedDate != "" {
			lines = append(lines, fmt.Sprintf("  Posted: %s", safe(job.PostedDate)))
		}
		if job.Description != "" {
			lines = append(lines, fmt.Sprintf("  Summary: %s", summary(job.Description)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

var csvHeader = []string{
	"source",
	"title",
	"company",
	"location",
	"url",
	"remote",
	"job_type",
	"salary",
	"posted_date",
	"description",
	"date_added",
}

func csvRow(job models.JobPosting) []string {
	added := ""
	if !job.DateAdded.IsZero() {
		added = job.DateAdded.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return []string{
		job.Source,
		job.Title,
		job.Company,
		job.Location,
		job.URL,
		strconv.FormatBool(job.Remote),
		job.JobType,
		job.Salary.String(),
		job.PostedDate,
		summary(job.Description),
		added,
	}
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

// summary flattens a description onto one line and caps its length.
func summary(value string) string {
	const maxLen = 280
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > maxLen {
		value = strings.TrimSpace(value[:maxLen-3]) + "..."
	}
	return value
}

func tableRow(job models.JobPosting, output *termenv.Output, opts WriteOptions) []string {
	link := safe(job.URL)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		displayURL = ui.ColorizeLink(output, opts.ColorEnabled, displayURL)
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	return []string{
		safe(job.Source),
		safe(job.Title),
		safe(job.Company),
		safe(job.Location),
		displayURL,
	}
}

func hyperlink(link string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + link + esc + "\\" + text + esc + "]8;;" + esc + "\\"
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
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}

// WriteUsage renders quota usage as a table or JSON.
func WriteUsage(w io.Writer, usage models.Usage, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, usage)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "bucket\ttoday\ttotal\tdaily_limit\tremaining")
	if len(usage.Sources) == 0 {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", "search", usage.Today, usage.Total, usage.DailyLimit, usage.Remaining)
	}
	for _, s := range usage.Sources {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Source, s.Today, s.Total, s.DailyLimit, s.Remaining)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "user %s: %d used today, %d remaining\n", usage.UserID, usage.Today, usage.Remaining)
	return err
}
