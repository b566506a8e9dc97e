package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/jimezsa/jobagg/internal/scraper"
	"github.com/rs/zerolog"
)

var errAdapterTimeout = errors.New("adapter timed out")

type sourceResult struct {
	source   string
	jobs     []models.JobPosting
	attempts int
	err      *SourceError
}

// fanOut runs every adapter concurrently and returns results indexed like
// adapters, so callers can aggregate in declared order.
func (o *Orchestrator) fanOut(ctx context.Context, logger zerolog.Logger, adapters []scraper.Scraper, query models.Query) []sourceResult {
	if o.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RequestTimeout)
		defer cancel()
	}

	results := make([]sourceResult, len(adapters))
	var wg sync.WaitGroup
	for i, sc := range adapters {
		wg.Add(1)
		go func(i int, sc scraper.Scraper) {
			defer wg.Done()
			results[i] = o.fetchWithRetry(ctx, logger, sc, query)
		}(i, sc)
	}
	wg.Wait()
	return results
}

// fetchWithRetry retries only attempts that hit the per-adapter timeout.
// Any other error, or cancellation of the request itself, is final.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, logger zerolog.Logger, sc scraper.Scraper, query models.Query) sourceResult {
	name := scraper.NormalizeName(sc.Name())
	res := sourceResult{source: name}

	attempts := o.opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res.attempts = attempt
		jobs, err := o.attempt(ctx, sc, query)
		if err == nil {
			res.jobs = jobs
			return res
		}
		lastErr = err

		if ctx.Err() != nil {
			lastErr = fmt.Errorf("request cancelled: %w", ctx.Err())
			logger.Warn().Str("source", name).Int("attempt", attempt).Err(lastErr).Msg("source abandoned")
			break
		}
		if !errors.Is(err, errAdapterTimeout) {
			logger.Warn().Str("source", name).Int("attempt", attempt).Err(err).Msg("source failed")
			break
		}
		logger.Warn().Str("source", name).Int("attempt", attempt).Int("max_attempts", attempts).Msg("source timed out")
	}

	res.err = &SourceError{
		Source:   name,
		Attempts: res.attempts,
		Timeout:  errors.Is(lastErr, errAdapterTimeout) || errors.Is(lastErr, context.DeadlineExceeded),
		Err:      lastErr,
	}
	return res
}

// attempt runs one Fetch under the adapter timeout. The adapter runs in
// its own goroutine so one that ignores ctx cannot stall the request.
func (o *Orchestrator) attempt(ctx context.Context, sc scraper.Scraper, query models.Query) ([]models.JobPosting, error) {
	actx := ctx
	if o.opts.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, o.opts.AdapterTimeout)
		defer cancel()
	}

	type outcome struct {
		jobs []models.JobPosting
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		jobs, err := sc.Fetch(actx, query)
		done <- outcome{jobs: jobs, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.jobs, nil
		}
		if ctx.Err() == nil && (errors.Is(actx.Err(), context.DeadlineExceeded) || isTimeout(out.err)) {
			return nil, fmt.Errorf("%w: %v", errAdapterTimeout, out.err)
		}
		return nil, out.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errAdapterTimeout
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
