package quota

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jobagg:quota"

// RedisStore keeps one hash per user and source, field = day.
// HINCRBY makes single increments atomic across processes.
type RedisStore struct {
	client *redis.Client
}

// OpenRedisStore parses a redis:// URL and pings the server.
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse quota redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &PersistenceError{Op: "connect", Err: err}
	}
	return &RedisStore{client: client}, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(userID, source string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, userID, source)
}

func (s *RedisStore) Load(ctx context.Context, userID, source string) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, redisKey(userID, source)).Result()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	out := make(map[string]int, len(raw))
	for day, value := range raw {
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		out[day] = n
	}
	return out, nil
}

func (s *RedisStore) Increment(ctx context.Context, userID, source, day string, n int) error {
	if err := s.client.HIncrBy(ctx, redisKey(userID, source), day, int64(n)).Err(); err != nil {
		return &PersistenceError{Op: "increment", Err: err}
	}
	return nil
}

func (s *RedisStore) Purge(ctx context.Context, userID, source, cutoff string) error {
	key := redisKey(userID, source)
	days, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		return &PersistenceError{Op: "purge", Err: err}
	}
	var stale []string
	for _, day := range days {
		if day < cutoff {
			stale = append(stale, day)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, key, stale...).Err(); err != nil {
		return &PersistenceError{Op: "purge", Err: err}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
