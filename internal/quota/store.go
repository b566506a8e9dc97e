package quota

import (
	"context"
	"time"
)

// DayLayout is the calendar-day key format. Days are UTC.
const DayLayout = "2006-01-02"

// Store persists per-user, per-source daily call counts.
// Day keys use DayLayout, so lexical order matches calendar order.
type Store interface {
	// Load returns day -> count for one user and source.
	Load(ctx context.Context, userID, source string) (map[string]int, error)
	// Increment adds n (which may be negative) to one day's count.
	Increment(ctx context.Context, userID, source, day string, n int) error
	// Purge drops every day strictly before cutoff.
	Purge(ctx context.Context, userID, source, cutoff string) error
	Close() error
}

// DayKey formats t as a UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
