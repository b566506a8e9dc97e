package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache maps a query fingerprint to a previously fetched result list.
// Implementations never fail a request: backend errors degrade to a miss.
type Cache interface {
	Lookup(ctx context.Context, fingerprint string) ([]models.JobPosting, bool)
	Store(ctx context.Context, fingerprint string, jobs []models.JobPosting)
	Len(ctx context.Context) int
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Enabled  bool
	TTL      time.Duration
	MaxSize  int
	Backend  string
	RedisURL string
}

// New picks the implementation for cfg. A disabled config yields a
// pass-through cache so callers never branch on it.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Cache, error) {
	if !cfg.Enabled || cfg.MaxSize <= 0 || cfg.TTL <= 0 {
		return Disabled{}, nil
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(cfg.TTL, cfg.MaxSize), nil
	case BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse cache redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect cache redis: %w", err)
		}
		return NewRedis(client, cfg.TTL, cfg.MaxSize, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Disabled always misses and drops stores.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) ([]models.JobPosting, bool) { return nil, false }

func (Disabled) Store(context.Context, string, []models.JobPosting) {}

func (Disabled) Len(context.Context) int { return 0 }

func cloneJobs(jobs []models.JobPosting) []models.JobPosting {
	if jobs == nil {
		return []models.JobPosting{}
	}
	return append([]models.JobPosting(nil), jobs...)
}
