package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadFileMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("expected defaults for missing file")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err = LoadFile(empty)
	if err != nil || cfg.DailyLimit != 100 {
		t.Fatalf("expected defaults for empty file, got %+v, %v", cfg, err)
	}
}

func TestLoadFileJSON5Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  // comments and trailing commas are allowed
  "daily_limit": 5,
  "default_sources": ["linkedin", "indeed"],
  "source_limits": {"linkedin": 2},
  "cache": {"enabled": false, "ttl_seconds": 60, "max_size": 10, "backend": "memory"},
  "scraper": {"timeout_seconds": 5, "retry_attempts": 2,},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.DailyLimit != 5 || cfg.SourceLimits["linkedin"] != 2 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.DefaultSources, []string{"linkedin", "indeed"}) {
		t.Fatalf("unexpected sources: %v", cfg.DefaultSources)
	}
	if cfg.Cache.Enabled || cfg.Cache.TTL().Seconds() != 60 {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	// Untouched keys keep their defaults.
	if cfg.Adzuna.Country != "us" || cfg.Server.Addr != "127.0.0.1:8000" {
		t.Fatalf("expected defaults to survive: %+v", cfg)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)
	t.Setenv(EnvPrefix+"DAILY_LIMIT", "7")
	t.Setenv(EnvPrefix+"DEFAULT_SOURCES", "linkedin, glassdoor")
	t.Setenv(EnvPrefix+"CACHE_ENABLED", "false")
	t.Setenv("ADZUNA_APP_ID", "id")
	t.Setenv("ADZUNA_APP_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DailyLimit != 7 || cfg.Cache.Enabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.DefaultSources, []string{"linkedin", "glassdoor"}) {
		t.Fatalf("unexpected sources: %v", cfg.DefaultSources)
	}
	if cfg.Adzuna.AppID != "id" || cfg.Adzuna.AppKey != "key" {
		t.Fatalf("adzuna credentials not applied: %+v", cfg.Adzuna)
	}
	if cfg.Quota.Path != filepath.Join(dir, UsageFileName) {
		t.Fatalf("unexpected quota path: %q", cfg.Quota.Path)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative limit", func(c *Config) { c.DailyLimit = -1 }, "daily_limit"},
		{"negative source limit", func(c *Config) { c.SourceLimits = map[string]int{"x": -2} }, "source_limits.x"},
		{"bad mode", func(c *Config) { c.QuotaMode = "weekly" }, "quota_mode"},
		{"redis without url", func(c *Config) { c.Quota.Backend = "redis" }, "quota.redis_url"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -5 }, "ttl_seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestInitAndLoadProxies(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)
	t.Setenv(EnvPrefix+"PROXIES", "")

	created, err := Init()
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created files, got %v", created)
	}
	again, err := Init()
	if err != nil || len(again) != 0 {
		t.Fatalf("expected idempotent Init, got %v, %v", again, err)
	}

	if err := os.WriteFile(filepath.Join(dir, ProxiesFileName), []byte("# comment\nhttp://p1:8080\n\nhttp://p2:8080\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	proxies, err := LoadProxies("", nil)
	if err != nil || !reflect.DeepEqual(proxies, []string{"http://p1:8080", "http://p2:8080"}) {
		t.Fatalf("LoadProxies() = %v, %v", proxies, err)
	}

	proxies, _ = LoadProxies("", []string{"http://cfg:1"})
	if !reflect.DeepEqual(proxies, []string{"http://cfg:1"}) {
		t.Fatalf("expected config proxies, got %v", proxies)
	}
	proxies, _ = LoadProxies(" http://a:1 , http://b:2", []string{"http://cfg:1"})
	if !reflect.DeepEqual(proxies, []string{"http://a:1", "http://b:2"}) {
		t.Fatalf("expected flag proxies, got %v", proxies)
	}
}
