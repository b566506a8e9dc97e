package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded is matched with errors.Is against *QuotaExceededError.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ValidationError reports a malformed search request. Nothing has been
// charged or fetched when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// QuotaExceededError is returned when admission is denied. No adapter
// ran and no usage was recorded.
type QuotaExceededError struct {
	UserID  string
	Limit   int
	Sources []string
}

func (e *QuotaExceededError) Error() string {
	if len(e.Sources) > 0 {
		return fmt.Sprintf("%v for user %s (sources: %s)", ErrQuotaExceeded, e.UserID, strings.Join(e.Sources, ", "))
	}
	return fmt.Sprintf("%v for user %s (limit %d)", ErrQuotaExceeded, e.UserID, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// SourceError describes one adapter's failure within a request. It is
// reported in Report, never returned from Search.
type SourceError struct {
	Source   string
	Attempts int
	Timeout  bool
	Err      error
}

func (e *SourceError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("source %s %s after %d attempt(s): %v", e.Source, kind, e.Attempts, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
