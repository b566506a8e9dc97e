package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisEntryPrefix = "jobagg:cache:entry:"
	redisIndexKey    = "jobagg:cache:index"
)

// storeScript evicts the oldest members until a new key fits, then writes
// the entry and its index member. It runs atomically on the server.
//
// KEYS: index, entry. ARGV: member, max size, payload, ttl ms, score, entry prefix.
var storeScript = redis.NewScript(`
local index = KEYS[1]
local member = ARGV[1]
local max = tonumber(ARGV[2])
if not redis.call('ZSCORE', index, member) then
	local n = redis.call('ZCARD', index)
	if n >= max then
		local popped = redis.call('ZPOPMIN', index, n - max + 1)
		for i = 1, #popped, 2 do
			redis.call('DEL', ARGV[6] .. popped[i])
		end
	end
end
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[4])
redis.call('ZADD', index, ARGV[5], member)
return 1
`)

type redisEntry struct {
	Jobs    []models.JobPosting `json:"jobs"`
	Created time.Time           `json:"created"`
}

// Redis shares cached results between processes. Each entry is a string
// key expiring after the TTL; a sorted set scored by creation time tracks
// membership for size-bounded eviction. Redis errors degrade to misses.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
	logger  zerolog.Logger
	now     func() time.Time
}

func NewRedis(client *redis.Client, ttl time.Duration, maxSize int, logger zerolog.Logger) *Redis {
	return &Redis{
		client:  client,
		ttl:     ttl,
		maxSize: maxSize,
		logger:  logger.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
}

func (r *Redis) Lookup(ctx context.Context, fingerprint string) ([]models.JobPosting, bool) {
	raw, err := r.client.Get(ctx, redisEntryPrefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired by Redis; drop the index member too.
			_ = r.client.ZRem(ctx, redisIndexKey, fingerprint).Err()
		} else {
			r.logger.Warn().Err(err).Msg("cache lookup failed, treating as miss")
		}
		return nil, false
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		r.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache entry corrupt, dropping")
		r.remove(ctx, fingerprint)
		return nil, false
	}
	if r.now().Sub(e.Created) >= r.ttl {
		r.remove(ctx, fingerprint)
		return nil, false
	}
	return cloneJobs(e.Jobs), true
}

func (r *Redis) Store(ctx context.Context, fingerprint string, jobs []models.JobPosting) {
	created := r.now()
	payload, err := json.Marshal(redisEntry{Jobs: cloneJobs(jobs), Created: created})
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache encode failed")
		return
	}

	ttl := r.ttl.Milliseconds()
	if ttl < 1 {
		ttl = 1
	}
	err = storeScript.Run(ctx, r.client,
		[]string{redisIndexKey, redisEntryPrefix + fingerprint},
		fingerprint,
		r.maxSize,
		payload,
		ttl,
		strconv.FormatInt(created.UnixNano(), 10),
		redisEntryPrefix,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn().Err(err).Msg("cache store failed")
	}
}

func (r *Redis) Len(ctx context.Context) int {
	n, err := r.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) remove(ctx context.Context, fingerprint string) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisEntryPrefix+fingerprint)
		pipe.ZRem(ctx, redisIndexKey, fingerprint)
		return nil
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache remove failed")
	}
}
