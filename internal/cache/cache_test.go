package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFingerprintNormalizes(t *testing.T) {
	base := Fingerprint("Go Developer", "Berlin", false)
	if len(base) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", base)
	}

	cases := []struct {
		name       string
		keywords   string
		location   string
		remoteOnly bool
		same       bool
	}{
		{"case and spacing", "  go   DEVELOPER ", "berlin", false, true},
		{"remote flag", "Go Developer", "Berlin", true, false},
		{"location", "Go Developer", "Munich", false, false},
		{"field boundary", "Go DeveloperBerlin", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fingerprint(tc.keywords, tc.location, tc.remoteOnly)
			if (got == base) != tc.same {
				t.Fatalf("Fingerprint(%q, %q, %v) = %q, base %q", tc.keywords, tc.location, tc.remoteOnly, got, base)
			}
		})
	}
}

func TestDisabledIsPassThrough(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, Config{Enabled: false, TTL: time.Hour, MaxSize: 10}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Store(ctx, "k", jobs("a"))
	if _, ok := c.Lookup(ctx, "k"); ok {
		t.Fatalf("disabled cache should always miss")
	}
	if c.Len(ctx) != 0 {
		t.Fatalf("disabled cache should be empty")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Enabled: true, TTL: time.Hour, MaxSize: 10}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("expected memory cache, got %T", c)
	}

	c, err = New(ctx, Config{Enabled: true, TTL: time.Hour, MaxSize: 0}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.(Disabled); !ok {
		t.Fatalf("expected zero max size to disable caching, got %T", c)
	}

	if _, err := New(ctx, Config{Enabled: true, TTL: time.Hour, MaxSize: 1, Backend: "memcached"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
