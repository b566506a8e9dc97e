package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jimezsa/jobagg/internal/config"
	"github.com/jimezsa/jobagg/internal/export"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/search"
	"github.com/muesli/termenv"
)

type SearchCmd struct {
	Keywords string `arg:"" help:"Search keywords."`
	SearchOptions
}

type SearchOptions struct {
	Location string `help:"Job location." env:"JOBAGG_DEFAULT_LOCATION"`
	Remote   bool   `help:"Remote-only roles."`
	Sources  string `help:"Comma-separated list of sources (default: configured default_sources)."`
	User     string `help:"User the search is charged to." env:"JOBAGG_USER_ID"`
	SearchID string `name:"search-id" help:"Caller-supplied search identifier."`
	Format   string `help:"Output format: table, csv, json, md, tsv." enum:",table,csv,json,md,tsv" default:""`
	Links    string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output   string `name:"output" short:"o" help:"Write output to a file."`
	Proxies  string `help:"Comma-separated proxy URLs." env:"JOBAGG_PROXIES"`
}

func (s *SearchCmd) Run(ctx *Context) error {
	return runSearch(ctx, s.Keywords, s.SearchOptions)
}

func runSearch(ctx *Context, keywords string, opts SearchOptions) error {
	cfg := ctx.Config
	req := models.SearchRequest{
		Keywords:   keywords,
		Location:   firstNonEmpty(opts.Location, cfg.DefaultLocation),
		RemoteOnly: opts.Remote,
		Sources:    splitList(opts.Sources),
		SearchID:   strings.TrimSpace(opts.SearchID),
	}
	userID := firstNonEmpty(opts.User, cfg.UserID)

	outputPath := resolveOutputPath(opts)
	format, err := resolveFormat(ctx, opts, outputPath)
	if err != nil {
		return err
	}

	proxies, err := config.LoadProxies(opts.Proxies, cfg.Scraper.Proxies)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(runCtx, cfg, proxies, ctx.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	stopIndicator := startSearchIndicator(ctx)
	jobs, report, err := svc.orchestrator.SearchWithReport(runCtx, req, userID)
	if stopIndicator != nil {
		stopIndicator()
	}
	if err != nil {
		if isQuotaExceeded(err) {
			usage := svc.orchestrator.Usage(runCtx, userID)
			return fmt.Errorf("%w; used %d of %d today", err, usage.Today, usage.DailyLimit)
		}
		return err
	}

	reportSourceFailures(ctx, report.Sources)

	writer := ctx.Out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(opts.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	if err := export.WriteJobs(writer, jobs, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	}); err != nil {
		return err
	}

	printSearchSummary(ctx, jobs, report)
	return nil
}

func printSearchSummary(ctx *Context, jobs []models.JobPosting, report search.Report) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSearchSummary(jobs, report))
}

func formatSearchSummary(jobs []models.JobPosting, report search.Report) string {
	cache := "miss"
	if report.CacheHit {
		cache = "hit"
	}

	counts := countJobsBySource(jobs)
	if len(counts) == 0 {
		return fmt.Sprintf("summary: jobs=0 cache=%s by_source=none", cache)
	}

	parts := make([]string, 0, len(counts))
	for _, count := range counts {
		parts = append(parts, fmt.Sprintf("%s:%d", count.source, count.total))
	}
	return fmt.Sprintf("summary: jobs=%d cache=%s by_source=%s", len(jobs), cache, strings.Join(parts, ", "))
}

type sourceCount struct {
	source string
	total  int
}

func countJobsBySource(jobs []models.JobPosting) []sourceCount {
	totals := make(map[string]int, len(jobs))
	for _, job := range jobs {
		source := strings.ToLower(strings.TrimSpace(job.Source))
		if source == "" {
			source = "unknown"
		}
		totals[source]++
	}

	counts := make([]sourceCount, 0, len(totals))
	for source, total := range totals {
		counts = append(counts, sourceCount{source: source, total: total})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].source < counts[j].source
	})
	return counts
}

func reportSourceFailures(ctx *Context, outcomes []search.SourceOutcome) {
	if ctx == nil || ctx.UI == nil || !ctx.Verbose {
		return
	}

	var failed []search.SourceOutcome
	for _, out := range outcomes {
		if out.Error != "" {
			failed = append(failed, out)
		}
	}
	if len(failed) == 0 {
		return
	}

	ctx.UI.Warnf("\nSource errors:")
	for _, out := range failed {
		ctx.UI.Warnf("  %s (attempts %d): %s", out.Source, out.Attempts, out.Error)
	}
}

func resolveOutputPath(opts SearchOptions) string {
	return strings.TrimSpace(opts.Output)
}

func resolveFormat(ctx *Context, opts SearchOptions, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if opts.Format != "" {
		return export.ParseFormat(opts.Format)
	}
	if outputPath != "" {
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startSearchIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2KSearching... %ds %s", seconds, frame)
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
