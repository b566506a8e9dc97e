package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// usageDocument is the on-disk shape: user -> source -> day -> count.
type usageDocument map[string]map[string]map[string]int

// FileStore keeps usage in one JSON file, read once at open and
// rewritten atomically on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
	data usageDocument
}

// OpenFileStore reads path if it exists. A corrupt or unreadable file is
// logged and replaced by empty usage on the next write.
func OpenFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("quota file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	s := &FileStore{path: path, data: usageDocument{}}
	data, err := readUsageFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("quota file unreadable, starting with empty usage (fail-open)")
		return s, nil
	}
	s.data = data
	return s, nil
}

func readUsageFile(path string) (usageDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usageDocument{}, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return usageDocument{}, nil
	}

	var doc usageDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = usageDocument{}
	}
	return doc, nil
}

func (s *FileStore) Load(_ context.Context, userID, source string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := s.data[userID][source]
	out := make(map[string]int, len(days))
	for day, n := range days {
		out[day] = n
	}
	return out, nil
}

func (s *FileStore) Increment(_ context.Context, userID, source, day string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources, ok := s.data[userID]
	if !ok {
		sources = map[string]map[string]int{}
		s.data[userID] = sources
	}
	days, ok := sources[source]
	if !ok {
		days = map[string]int{}
		sources[source] = days
	}
	prev, had := days[day]
	days[day] += n
	if days[day] <= 0 {
		delete(days, day)
	}
	if err := s.flush(); err != nil {
		// Roll back so memory never holds an unpersisted count.
		if had {
			days[day] = prev
		} else {
			delete(days, day)
		}
		return err
	}
	return nil
}

func (s *FileStore) Purge(_ context.Context, userID, source, cutoff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := s.data[userID][source]
	changed := false
	for day := range days {
		if day < cutoff {
			delete(days, day)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

func (s *FileStore) Close() error {
	return nil
}

// flush writes to a temp file in the same directory and renames it over
// the target. Caller holds s.mu.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".quota-*.json")
	if err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "rename", Err: err}
	}
	return nil
}
