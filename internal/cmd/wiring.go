package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jimezsa/jobagg/internal/adzuna"
	"github.com/jimezsa/jobagg/internal/cache"
	"github.com/jimezsa/jobagg/internal/config"
	"github.com/jimezsa/jobagg/internal/quota"
	"github.com/jimezsa/jobagg/internal/scraper"
	"github.com/jimezsa/jobagg/internal/search"
	"github.com/rs/zerolog"
)

// service bundles the orchestrator with everything that must be closed
// when the command exits.
type service struct {
	orchestrator *search.Orchestrator
	quota        *quota.Manager
	cache        cache.Cache
}

func (s *service) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if closer, ok := s.cache.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if s.quota != nil {
		errs = append(errs, s.quota.Close())
	}
	return errors.Join(errs...)
}

func buildService(ctx context.Context, cfg config.Config, proxies []string, logger zerolog.Logger) (*service, error) {
	registry, err := scraper.Build(scraper.BuildOptions{
		Proxies:       proxies,
		Timeout:       cfg.Scraper.Timeout(),
		RatePerSecond: cfg.Scraper.RatePerSecond,
		Adzuna: adzuna.Config{
			AppID:    cfg.Adzuna.AppID,
			AppKey:   cfg.Adzuna.AppKey,
			Country:  cfg.Adzuna.Country,
			PageSize: cfg.Adzuna.PageSize,
		},
	})
	if err != nil {
		return nil, err
	}

	store, err := openQuotaStore(ctx, cfg.Quota, logger)
	if err != nil {
		return nil, err
	}
	manager := quota.NewManager(store, logger)

	resultCache, err := cache.New(ctx, cache.Config{
		Enabled:  cfg.Cache.Enabled,
		TTL:      cfg.Cache.TTL(),
		MaxSize:  cfg.Cache.MaxSize,
		Backend:  cfg.Cache.Backend,
		RedisURL: cfg.Cache.RedisURL,
	}, logger)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}

	orchestrator, err := search.New(registry, manager, resultCache, search.Options{
		DefaultSources: cfg.DefaultSources,
		DailyLimit:     cfg.DailyLimit,
		SourceLimits:   cfg.SourceLimits,
		QuotaMode:      cfg.QuotaMode,
		AdapterTimeout: cfg.Scraper.Timeout(),
		RetryAttempts:  cfg.Scraper.RetryAttempts,
		RequestTimeout: cfg.Scraper.RequestTimeout(),
	}, logger)
	if err != nil {
		svc := &service{quota: manager, cache: resultCache}
		_ = svc.Close()
		return nil, err
	}

	return &service{orchestrator: orchestrator, quota: manager, cache: resultCache}, nil
}

func openQuotaStore(ctx context.Context, cfg config.QuotaConfig, logger zerolog.Logger) (quota.Store, error) {
	switch cfg.Backend {
	case "", "file":
		return quota.OpenFileStore(cfg.Path, logger)
	case "redis":
		return quota.OpenRedisStore(ctx, cfg.RedisURL)
	case "postgres":
		return quota.OpenPostgresStore(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown quota backend: %s", cfg.Backend)
	}
}

func isQuotaExceeded(err error) bool {
	return errors.Is(err, search.ErrQuotaExceeded)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
