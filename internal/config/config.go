package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobagg"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	UsageFileName   = "usage.json"
	EnvPrefix       = "JOBAGG_"
)

// Config is the whole runtime configuration. Zero values in a config
// file fall back to DefaultConfig.
type Config struct {
	DefaultLocation string         `json:"default_location"`
	DefaultSources  []string       `json:"default_sources"`
	UserID          string         `json:"user_id"`
	DailyLimit      int            `json:"daily_limit"`
	SourceLimits    map[string]int `json:"source_limits,omitempty"`
	QuotaMode       string         `json:"quota_mode"`
	Quota           QuotaConfig    `json:"quota"`
	Cache           CacheConfig    `json:"cache"`
	Scraper         ScraperConfig  `json:"scraper"`
	Adzuna          AdzunaConfig   `json:"adzuna"`
	Server          ServerConfig   `json:"server"`
}

type QuotaConfig struct {
	// Backend is one of file, redis, postgres.
	Backend     string `json:"backend"`
	Path        string `json:"path,omitempty"`
	RedisURL    string `json:"redis_url,omitempty"`
	PostgresURL string `json:"postgres_url,omitempty"`
}

type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	TTLSeconds int    `json:"ttl_seconds"`
	MaxSize    int    `json:"max_size"`
	Backend    string `json:"backend"`
	RedisURL   string `json:"redis_url,omitempty"`
}

type ScraperConfig struct {
	TimeoutSeconds        int      `json:"timeout_seconds"`
	RetryAttempts         int      `json:"retry_attempts"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds"`
	RatePerSecond         float64  `json:"rate_per_second"`
	Proxies               []string `json:"proxies,omitempty"`
}

type AdzunaConfig struct {
	AppID    string `json:"app_id"`
	AppKey   string `json:"app_key"`
	Country  string `json:"country"`
	PageSize int    `json:"page_size"`
}

type ServerConfig struct {
	Addr string `json:"addr"`
}

func DefaultConfig() Config {
	return Config{
		DefaultSources: []string{"adzuna"},
		UserID:         "default",
		DailyLimit:     100,
		QuotaMode:      "request",
		Quota:          QuotaConfig{Backend: "file"},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
			MaxSize:    1000,
			Backend:    "memory",
		},
		Scraper: ScraperConfig{
			TimeoutSeconds: 30,
			RetryAttempts:  3,
		},
		Adzuna: AdzunaConfig{Country: "us", PageSize: 50},
		Server: ServerConfig{Addr: "127.0.0.1:8000"},
	}
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ScraperConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// Load reads .env, the config file and environment overrides, in that
// order of increasing precedence, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	if cfg.Quota.Backend == "file" && cfg.Quota.Path == "" {
		cfg.Quota.Path = filepath.Join(filepath.Dir(path), UsageFileName)
	}
	return cfg, cfg.Validate()
}

// LoadFile decodes a JSON5 config over the defaults. A missing or empty
// file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DefaultLocation = envString(EnvPrefix+"DEFAULT_LOCATION", cfg.DefaultLocation)
	if sources := envString(EnvPrefix+"DEFAULT_SOURCES", ""); sources != "" {
		cfg.DefaultSources = splitCSV(sources)
	}
	cfg.UserID = envString(EnvPrefix+"USER_ID", cfg.UserID)
	cfg.DailyLimit = envInt(EnvPrefix+"DAILY_LIMIT", cfg.DailyLimit)
	cfg.QuotaMode = envString(EnvPrefix+"QUOTA_MODE", cfg.QuotaMode)

	cfg.Quota.Backend = envString(EnvPrefix+"QUOTA_BACKEND", cfg.Quota.Backend)
	cfg.Quota.Path = envString(EnvPrefix+"QUOTA_PATH", cfg.Quota.Path)
	cfg.Quota.RedisURL = envString(EnvPrefix+"QUOTA_REDIS_URL", cfg.Quota.RedisURL)
	cfg.Quota.PostgresURL = envString(EnvPrefix+"QUOTA_POSTGRES_URL", cfg.Quota.PostgresURL)

	cfg.Cache.Enabled = envBool(EnvPrefix+"CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.TTLSeconds = envInt(EnvPrefix+"CACHE_TTL_SECONDS", cfg.Cache.TTLSeconds)
	cfg.Cache.MaxSize = envInt(EnvPrefix+"CACHE_MAX_SIZE", cfg.Cache.MaxSize)
	cfg.Cache.Backend = envString(EnvPrefix+"CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisURL = envString(EnvPrefix+"CACHE_REDIS_URL", cfg.Cache.RedisURL)

	cfg.Scraper.TimeoutSeconds = envInt(EnvPrefix+"TIMEOUT_SECONDS", cfg.Scraper.TimeoutSeconds)
	cfg.Scraper.RetryAttempts = envInt(EnvPrefix+"RETRY_ATTEMPTS", cfg.Scraper.RetryAttempts)
	cfg.Scraper.RequestTimeoutSeconds = envInt(EnvPrefix+"REQUEST_TIMEOUT_SECONDS", cfg.Scraper.RequestTimeoutSeconds)
	cfg.Scraper.RatePerSecond = envFloat(EnvPrefix+"RATE_PER_SECOND", cfg.Scraper.RatePerSecond)

	cfg.Adzuna.AppID = envString("ADZUNA_APP_ID", cfg.Adzuna.AppID)
	cfg.Adzuna.AppKey = envString("ADZUNA_APP_KEY", cfg.Adzuna.AppKey)
	cfg.Adzuna.Country = envString("ADZUNA_COUNTRY", cfg.Adzuna.Country)

	cfg.Server.Addr = envString(EnvPrefix+"SERVER_ADDR", cfg.Server.Addr)
}

// Validate rejects values that cannot be served at runtime.
func (c Config) Validate() error {
	var problems []string
	if c.DailyLimit < 0 {
		problems = append(problems, "daily_limit must be >= 0")
	}
	for source, limit := range c.SourceLimits {
		if limit < 0 {
			problems = append(problems, fmt.Sprintf("source_limits.%s must be >= 0", source))
		}
	}
	switch c.QuotaMode {
	case "request", "source":
	default:
		problems = append(problems, fmt.Sprintf("quota_mode %q must be request or source", c.QuotaMode))
	}
	switch c.Quota.Backend {
	case "file":
	case "redis":
		if c.Quota.RedisURL == "" {
			problems = append(problems, "quota.redis_url is required for the redis backend")
		}
	case "postgres":
		if c.Quota.PostgresURL == "" {
			problems = append(problems, "quota.postgres_url is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown quota.backend %q", c.Quota.Backend))
	}
	if c.Cache.TTLSeconds < 0 {
		problems = append(problems, "cache.ttl_seconds must be >= 0")
	}
	if c.Cache.MaxSize < 0 {
		problems = append(problems, "cache.max_size must be >= 0")
	}
	switch c.Cache.Backend {
	case "", "memory":
	case "redis":
		if c.Cache.Enabled && c.Cache.RedisURL == "" {
			problems = append(problems, "cache.redis_url is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}
	if c.Scraper.TimeoutSeconds < 0 || c.Scraper.RequestTimeoutSeconds < 0 {
		problems = append(problems, "scraper timeouts must be >= 0")
	}
	if c.Scraper.RetryAttempts < 0 {
		problems = append(problems, "scraper.retry_attempts must be >= 0")
	}
	if c.Scraper.RatePerSecond < 0 {
		problems = append(problems, "scraper.rate_per_second must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadProxies resolves proxies from the flag, the environment, the config
// file list and proxies.txt, first non-empty wins.
func LoadProxies(flagValue string, fromConfig []string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv(EnvPrefix + "PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	if len(fromConfig) > 0 {
		return append([]string(nil), fromConfig...), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
