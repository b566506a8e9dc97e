package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jimezsa/jobagg/internal/cache"
	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/quota"
	"github.com/jimezsa/jobagg/internal/scraper"
	"github.com/rs/zerolog"
)

const (
	// QuotaPerRequest charges one unit per search to RequestBucket.
	QuotaPerRequest = "request"
	// QuotaPerSource charges one unit per admitted source.
	QuotaPerSource = "source"

	RequestBucket = "search"
)

const (
	defaultAdapterTimeout = 30 * time.Second
	defaultRetryAttempts  = 3
)

type Options struct {
	DefaultSources []string
	DailyLimit     int
	// SourceLimits overrides DailyLimit per source in QuotaPerSource mode.
	SourceLimits   map[string]int
	QuotaMode      string
	AdapterTimeout time.Duration
	// RetryAttempts is the total number of attempts per adapter.
	RetryAttempts int
	// RequestTimeout bounds the whole fan-out; 0 disables it.
	RequestTimeout time.Duration
}

// Orchestrator runs a search across source adapters behind a quota gate
// and a result cache. It is safe for concurrent use.
type Orchestrator struct {
	registry *scraper.Registry
	quota    *quota.Manager
	cache    cache.Cache
	opts     Options
	logger   zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// SourceOutcome is one adapter's contribution to a request.
type SourceOutcome struct {
	Source   string `json:"source"`
	Count    int    `json:"count"`
	Attempts int    `json:"attempts"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

// Report describes how a request was served.
type Report struct {
	SearchID string          `json:"search_id"`
	CacheHit bool            `json:"cache_hit"`
	Sources  []SourceOutcome `json:"sources"`
	Duration time.Duration   `json:"duration_ns"`
}

func New(registry *scraper.Registry, quotaManager *quota.Manager, resultCache cache.Cache, opts Options, logger zerolog.Logger) (*Orchestrator, error) {
	if registry == nil || quotaManager == nil {
		return nil, fmt.Errorf("search: registry and quota manager are required")
	}
	if resultCache == nil {
		resultCache = cache.Disabled{}
	}

	switch opts.QuotaMode {
	case "":
		opts.QuotaMode = QuotaPerRequest
	case QuotaPerRequest, QuotaPerSource:
	default:
		return nil, fmt.Errorf("search: unknown quota mode %q", opts.QuotaMode)
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = defaultAdapterTimeout
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	opts.DefaultSources = scraper.NormalizeNames(opts.DefaultSources)
	if _, err := registry.Resolve(opts.DefaultSources); err != nil {
		return nil, fmt.Errorf("search: default sources: %w", err)
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Orchestrator{
		registry: registry,
		quota:    quotaManager,
		cache:    resultCache,
		opts:     opts,
		logger:   logger.With().Str("component", "search").Logger(),
		validate: validate,
		now:      time.Now,
	}, nil
}

// Search returns postings in declared source order. It fails only with
// *ValidationError or *QuotaExceededError; adapter failures shrink the
// result instead.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest, userID string) ([]models.JobPosting, error) {
	jobs, _, err := o.SearchWithReport(ctx, req, userID)
	return jobs, err
}

func (o *Orchestrator) SearchWithReport(ctx context.Context, req models.SearchRequest, userID string) ([]models.JobPosting, Report, error) {
	start := o.now()

	req, adapters, err := o.prepare(req, userID)
	if err != nil {
		return nil, Report{}, err
	}
	report := Report{SearchID: req.SearchID}
	logger := o.logger.With().Str("search_id", req.SearchID).Str("user_id", userID).Logger()
	logger.Debug().Strs("sources", req.Sources).Msg("search received")

	admitted, reservations, skipped, err := o.admit(ctx, userID, adapters)
	if err != nil {
		logger.Info().Err(err).Msg("search denied by quota")
		return nil, Report{}, err
	}

	fingerprint := cache.Fingerprint(req.Keywords, req.Location, req.RemoteOnly)
	if cached, ok := o.cache.Lookup(ctx, fingerprint); ok {
		for _, r := range reservations {
			o.quota.Release(ctx, r)
		}
		report.CacheHit = true
		report.Duration = o.now().Sub(start)
		logger.Debug().Str("fingerprint", fingerprint).Int("jobs", len(cached)).Msg("cache hit")
		return cached, report, nil
	}
	logger.Debug().Str("fingerprint", fingerprint).Msg("cache miss")

	results := o.fanOut(ctx, logger, admitted, req.Query())

	aggregated, outcomes, succeeded := o.aggregate(results)
	report.Sources = append(outcomes, skipped...)

	if succeeded > 0 {
		o.cache.Store(ctx, fingerprint, aggregated)
	}

	report.Duration = o.now().Sub(start)
	event := logger.Info().Int("jobs", len(aggregated)).Dur("duration", report.Duration)
	for _, out := range report.Sources {
		event = event.Int("count_"+out.Source, out.Count)
	}
	event.Msg("search completed")

	return aggregated, report, nil
}

// prepare normalizes and validates the request and resolves adapters.
// It has no side effects.
func (o *Orchestrator) prepare(req models.SearchRequest, userID string) (models.SearchRequest, []scraper.Scraper, error) {
	req.Keywords = strings.TrimSpace(req.Keywords)
	req.Location = strings.TrimSpace(req.Location)
	req.Sources = scraper.NormalizeNames(req.Sources)
	if len(req.Sources) == 0 {
		req.Sources = append([]string(nil), o.opts.DefaultSources...)
	}
	if strings.TrimSpace(userID) == "" {
		return req, nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}

	if err := o.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return req, nil, &ValidationError{Field: fe.Field(), Reason: describeTag(fe.Tag())}
		}
		return req, nil, &ValidationError{Field: "request", Reason: err.Error()}
	}

	adapters, err := o.registry.Resolve(req.Sources)
	if err != nil {
		var unknown *scraper.UnknownSourceError
		if errors.As(err, &unknown) {
			return req, nil, &ValidationError{Field: "sources", Reason: "unknown source " + unknown.Name}
		}
		return req, nil, &ValidationError{Field: "sources", Reason: err.Error()}
	}

	if req.SearchID == "" {
		req.SearchID = uuid.NewString()
	}
	return req, adapters, nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	default:
		return "failed " + tag + " check"
	}
}

// admit takes quota reservations for the request. In per-request mode one
// unit is charged to RequestBucket; in per-source mode each source is
// charged separately and exhausted sources are skipped.
func (o *Orchestrator) admit(ctx context.Context, userID string, adapters []scraper.Scraper) ([]scraper.Scraper, []quota.Reservation, []SourceOutcome, error) {
	if o.opts.QuotaMode == QuotaPerRequest {
		r, ok := o.quota.Acquire(ctx, RequestBucket, userID, o.opts.DailyLimit)
		if !ok {
			return nil, nil, nil, &QuotaExceededError{UserID: userID, Limit: o.opts.DailyLimit}
		}
		return adapters, []quota.Reservation{r}, nil, nil
	}

	var (
		admitted     []scraper.Scraper
		reservations []quota.Reservation
		skipped      []SourceOutcome
		exhausted    []string
	)
	for _, sc := range adapters {
		name := scraper.NormalizeName(sc.Name())
		r, ok := o.quota.Acquire(ctx, name, userID, o.limitFor(name))
		if !ok {
			exhausted = append(exhausted, name)
			skipped = append(skipped, SourceOutcome{Source: name, Skipped: true, Error: ErrQuotaExceeded.Error()})
			continue
		}
		admitted = append(admitted, sc)
		reservations = append(reservations, r)
	}
	if len(admitted) == 0 {
		return nil, nil, nil, &QuotaExceededError{UserID: userID, Sources: exhausted}
	}
	return admitted, reservations, skipped, nil
}

func (o *Orchestrator) limitFor(source string) int {
	if limit, ok := o.opts.SourceLimits[source]; ok {
		return limit
	}
	return o.opts.DailyLimit
}

// aggregate concatenates results in declared source order.
func (o *Orchestrator) aggregate(results []sourceResult) ([]models.JobPosting, []SourceOutcome, int) {
	added := o.now().UTC()
	total := 0
	for _, res := range results {
		total += len(res.jobs)
	}

	jobs := make([]models.JobPosting, 0, total)
	outcomes := make([]SourceOutcome, 0, len(results))
	succeeded := 0
	for _, res := range results {
		out := SourceOutcome{Source: res.source, Count: len(res.jobs), Attempts: res.attempts}
		if res.err != nil {
			out.Err = res.err
			out.Error = res.err.Error()
		} else {
			succeeded++
		}
		outcomes = append(outcomes, out)

		for _, job := range res.jobs {
			if job.Source == "" {
				job.Source = res.source
			}
			job.DateAdded = added
			jobs = append(jobs, job)
		}
	}
	return jobs, outcomes, succeeded
}

// Usage reports today's and retained consumption for userID.
func (o *Orchestrator) Usage(ctx context.Context, userID string) models.Usage {
	if o.opts.QuotaMode == QuotaPerRequest {
		u := o.quota.Usage(ctx, RequestBucket, userID, o.opts.DailyLimit)
		return models.Usage{
			UserID:     userID,
			Today:      u.Today,
			Total:      u.Total,
			DailyLimit: u.DailyLimit,
			Remaining:  u.Remaining,
		}
	}

	usage := models.Usage{UserID: userID}
	for _, name := range o.registry.Names() {
		u := o.quota.Usage(ctx, name, userID, o.limitFor(name))
		usage.Today += u.Today
		usage.Total += u.Total
		usage.DailyLimit += u.DailyLimit
		usage.Remaining += u.Remaining
		usage.Sources = append(usage.Sources, u)
	}
	return usage
}

// Sources lists registered adapter names.
func (o *Orchestrator) Sources() []string {
	return o.registry.Names()
}

// DefaultSources is the list used when a request names none.
func (o *Orchestrator) DefaultSources() []string {
	return append([]string(nil), o.opts.DefaultSources...)
}
