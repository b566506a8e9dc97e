package quota

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createUsageTable = `
CREATE TABLE IF NOT EXISTS quota_usage (
	user_id TEXT NOT NULL,
	source  TEXT NOT NULL,
	day     TEXT NOT NULL,
	count   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, source, day)
)`

// PostgresStore keeps one row per user, source and day. Increments are
// single UPSERT statements, atomic across processes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects and makes sure the usage table exists.
func OpenPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("parse quota postgres url: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &PersistenceError{Op: "connect", Err: err}
	}
	if _, err := pool.Exec(ctx, createUsageTable); err != nil {
		pool.Close()
		return nil, &PersistenceError{Op: "migrate", Err: err}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, userID, source string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT day, count FROM quota_usage WHERE user_id = $1 AND source = $2`,
		userID, source)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			day   string
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, &PersistenceError{Op: "load", Err: err}
		}
		out[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) Increment(ctx context.Context, userID, source, day string, n int) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO quota_usage (user_id, source, day, count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, source, day)
DO UPDATE SET count = quota_usage.count + EXCLUDED.count`,
		userID, source, day, n)
	if err != nil {
		return &PersistenceError{Op: "increment", Err: err}
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, userID, source, cutoff string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM quota_usage WHERE user_id = $1 AND source = $2 AND day < $3`,
		userID, source, cutoff)
	if err != nil {
		return &PersistenceError{Op: "purge", Err: err}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
