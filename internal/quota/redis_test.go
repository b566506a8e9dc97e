package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	store, err := OpenRedisStore(ctx, "redis://"+srv.Addr())
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Increment(ctx, "alice", "search", "2024-04-01", 2); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if err := store.Increment(ctx, "alice", "search", "2024-05-10", 3); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	days, err := store.Load(ctx, "alice", "search")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if days["2024-04-01"] != 2 || days["2024-05-10"] != 3 {
		t.Fatalf("unexpected days: %v", days)
	}

	if err := store.Purge(ctx, "alice", "search", "2024-05-01"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	days, _ = store.Load(ctx, "alice", "search")
	if len(days) != 1 || days["2024-05-10"] != 3 {
		t.Fatalf("unexpected days after purge: %v", days)
	}
}

func TestManagerOverRedisFailsOpenWhenServerGone(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	store, err := OpenRedisStore(ctx, "redis://"+srv.Addr())
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	defer store.Close()

	now := func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) }
	m := NewManager(store, zerolog.Nop(), WithClock(now))
	m.RecordUse(ctx, "search", "alice", 1)
	if m.CanUse(ctx, "search", "alice", 1) {
		t.Fatalf("expected limit to be reached")
	}

	srv.Close()
	if !m.CanUse(ctx, "search", "alice", 1) {
		t.Fatalf("expected fail-open once redis is unreachable")
	}
}

func TestOpenRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := OpenRedisStore(context.Background(), "not-a-url://"); err == nil {
		t.Fatalf("expected parse error")
	}
}
