package quota

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := OpenFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	days, err := store.Load(context.Background(), "alice", "search")
	if err != nil || len(days) != 0 {
		t.Fatalf("expected empty usage, got %v, %v", days, err)
	}

	if err := store.Increment(context.Background(), "alice", "search", "2024-05-10", 2); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	doc, err := readUsageFile(path)
	if err != nil {
		t.Fatalf("expected rewritten file to parse: %v", err)
	}
	if doc["alice"]["search"]["2024-05-10"] != 2 {
		t.Fatalf("unexpected document: %v", doc)
	}
}

func TestFileStoreLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "nested", "usage.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if err := store.Increment(ctx, "alice", "search", "2024-05-10", 1); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	days, _ := store.Load(ctx, "alice", "search")
	days["2024-05-10"] = 99

	again, _ := store.Load(ctx, "alice", "search")
	if again["2024-05-10"] != 1 {
		t.Fatalf("store mutated through Load result: %v", again)
	}
}

func TestFileStoreIncrementToZeroDropsDay(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "usage.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	_ = store.Increment(ctx, "alice", "search", "2024-05-10", 1)
	_ = store.Increment(ctx, "alice", "search", "2024-05-10", -1)

	days, _ := store.Load(ctx, "alice", "search")
	if _, ok := days["2024-05-10"]; ok {
		t.Fatalf("expected day to be removed: %v", days)
	}
}

func TestOpenFileStoreRequiresPath(t *testing.T) {
	if _, err := OpenFileStore(" ", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFileStoreFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "quota")
	store, err := OpenFileStore(filepath.Join(dir, "usage.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if err := store.Increment(ctx, "alice", "search", "2024-05-10", 1); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if err := store.Increment(ctx, "alice", "search", "2024-05-10", 1); err == nil {
		t.Fatalf("expected write error after directory removal")
	}
	if err := store.Increment(ctx, "alice", "search", "2024-05-11", 1); err == nil {
		t.Fatalf("expected write error after directory removal")
	}

	days, _ := store.Load(ctx, "alice", "search")
	if days["2024-05-10"] != 1 {
		t.Fatalf("existing day = %d, want 1", days["2024-05-10"])
	}
	if _, ok := days["2024-05-11"]; ok {
		t.Fatalf("expected failed new day to be absent: %v", days)
	}
}
