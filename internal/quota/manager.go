package quota

import (
	"context"
	"sync"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
	"github.com/rs/zerolog"
)

// DefaultRetentionDays bounds how long daily counts are kept.
const DefaultRetentionDays = 30

// Manager decides admission against per-user daily limits and records
// usage. All check-then-increment sequences run under one mutex, so
// concurrent requests in this process cannot overshoot a limit.
//
// Store read failures fail open: usage is treated as zero and a warning
// is logged. Write failures are logged and otherwise ignored.
type Manager struct {
	mu            sync.Mutex
	store         Store
	logger        zerolog.Logger
	now           func() time.Time
	retentionDays int
}

type Option func(*Manager)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithRetentionDays(days int) Option {
	return func(m *Manager) {
		if days > 0 {
			m.retentionDays = days
		}
	}
}

func NewManager(store Store, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		logger:        logger.With().Str("component", "quota").Logger(),
		now:           time.Now,
		retentionDays: DefaultRetentionDays,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reservation is a unit of quota taken by Acquire. Release refunds it.
type Reservation struct {
	Source string
	UserID string
	Day    string
	Units  int

	recorded bool
}

// CanUse reports whether today's count is strictly below limit.
func (m *Manager) CanUse(ctx context.Context, source, userID string, limit int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.today(ctx, source, userID) < limit
}

// RecordUse adds count to today's usage and persists it immediately.
func (m *Manager) RecordUse(ctx context.Context, source, userID string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.increment(ctx, source, userID, DayKey(m.now()), count)
}

// Remaining returns max(0, limit - today's count).
func (m *Manager) Remaining(ctx context.Context, source, userID string, limit int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return remaining(limit, m.today(ctx, source, userID))
}

// Acquire atomically checks the limit and records one unit of use.
func (m *Manager) Acquire(ctx context.Context, source, userID string, limit int) (Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := DayKey(m.now())
	counts := m.counts(ctx, source, userID)
	if counts[day] >= limit {
		return Reservation{}, false
	}

	r := Reservation{Source: source, UserID: userID, Day: day, Units: 1}
	r.recorded = m.increment(ctx, source, userID, day, 1)
	return r, true
}

// Release refunds a reservation on the day it was taken.
func (m *Manager) Release(ctx context.Context, r Reservation) {
	if !r.recorded || r.Units <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.increment(ctx, r.Source, r.UserID, r.Day, -r.Units)
}

// Usage summarizes retained counts for one user and source.
func (m *Manager) Usage(ctx context.Context, source, userID string, limit int) models.SourceUsage {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.counts(ctx, source, userID)
	today := counts[DayKey(m.now())]
	total := 0
	for _, n := range counts {
		total += n
	}
	return models.SourceUsage{
		Source:     source,
		Today:      today,
		Total:      total,
		DailyLimit: limit,
		Remaining:  remaining(limit, today),
	}
}

func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) today(ctx context.Context, source, userID string) int {
	return m.counts(ctx, source, userID)[DayKey(m.now())]
}

// counts loads retained usage, purging days past the retention window.
// Caller holds m.mu.
func (m *Manager) counts(ctx context.Context, source, userID string) map[string]int {
	loaded, err := m.store.Load(ctx, userID, source)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("source", source).
			Msg("quota store unreadable, failing open with zero usage")
		return map[string]int{}
	}

	cutoff := DayKey(m.now().AddDate(0, 0, -m.retentionDays))
	stale := false
	counts := make(map[string]int, len(loaded))
	for day, n := range loaded {
		if day < cutoff {
			stale = true
			continue
		}
		counts[day] = n
	}

	if stale {
		if err := m.store.Purge(ctx, userID, source, cutoff); err != nil {
			m.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("source", source).
				Msg("quota purge failed")
		}
	}
	return counts
}

// increment reports whether the write reached the store. Caller holds m.mu.
func (m *Manager) increment(ctx context.Context, source, userID, day string, n int) bool {
	if err := m.store.Increment(ctx, userID, source, day, n); err != nil {
		m.logger.Error().Err(err).
			Str("user_id", userID).
			Str("source", source).
			Int("delta", n).
			Msg("quota write failed, continuing")
		return false
	}
	return true
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
