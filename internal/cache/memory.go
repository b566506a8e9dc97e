package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jimezsa/jobagg/internal/models"
)

type entry struct {
	jobs    []models.JobPosting
	created time.Time
}

// Memory is a bounded in-process cache. Expired entries are removed on
// lookup; when full, the entry with the oldest creation time is evicted.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func NewMemory(ttl time.Duration, maxSize int) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// WithClock replaces the time source and returns m.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Lookup(_ context.Context, fingerprint string) ([]models.JobPosting, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.created) >= m.ttl {
		delete(m.entries, fingerprint)
		return nil, false
	}
	return cloneJobs(e.jobs), true
}

func (m *Memory) Store(_ context.Context, fingerprint string, jobs []models.JobPosting) {
	if m.maxSize <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[fingerprint]; !exists {
		for len(m.entries) >= m.maxSize {
			m.evictOldest()
		}
	}
	m.entries[fingerprint] = entry{jobs: cloneJobs(jobs), created: m.now()}
}

func (m *Memory) Len(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictOldest drops the entry with the smallest creation time, ties
// broken by key. Caller holds m.mu.
func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, e := range m.entries {
		if !found || e.created.Before(oldest) || (e.created.Equal(oldest) && key < oldestKey) {
			oldestKey, oldest, found = key, e.created, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}
