// Package config loads settings from a json5 file, its ".local" override, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"github.com/ogri-la/twowdb-fetch-go/src/retry"
	"github.com/ogri-la/twowdb-fetch-go/src/twowdb"
)

// DefaultFile is the config file read when none is given.
const DefaultFile = "twowdb-fetch.json5"

type RetryConfig struct {
	MaxAttempts    int `json:"max_attempts"`
	InitialDelayMs int `json:"initial_delay_ms"`
	MaxDelayMs     int `json:"max_delay_ms"`
}

// Config holds all application configuration
type Config struct {
	BaseURL           string      `json:"base_url"`
	DataDir           string      `json:"data_dir"`
	CacheDir          string      `json:"cache_dir"`
	UserAgent         string      `json:"user_agent"`
	RequestsPerSecond float64     `json:"requests_per_second"`
	MaxWorkers        int         `json:"max_workers"`
	ItemTTLDays       int         `json:"item_ttl_days"`
	SearchTTLHours    int         `json:"search_ttl_hours"`
	ZonesFile         string      `json:"zones_file"`
	Retry             RetryConfig `json:"retry"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		BaseURL:           twowdb.DefaultBaseURL,
		DataDir:           "twow_items",
		CacheDir:          "cache",
		UserAgent:         "twowdb-fetch-go",
		RequestsPerSecond: 2,
		MaxWorkers:        4,
		ItemTTLDays:       7,
		SearchTTLHours:    2,
		ZonesFile:         "zones.json",
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMs: 1000,
			MaxDelayMs:     8000,
		},
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// LocalPath is the override file for a config file: "twowdb-fetch.json5" => "twowdb-fetch.local.json5"
func LocalPath(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// ReadFile reads a config file and merges its ".local" file over it.
// It returns os.ErrNotExist when neither file exists.
func ReadFile[T any](name string) (T, error) {
	var out T
	allNotFound := true

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, fmt.Errorf("failed to parse config file '%s': %w", name, err)
		}
		allNotFound = false
	}

	localPath := LocalPath(name)
	localFile, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, fmt.Errorf("failed to parse config file '%s': %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("failed to merge config: %w", err)
		}
		slog.Info("merging config with local overrides", "local", localPath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Load builds the configuration: defaults, then the config file (and its local override),
// then .env and environment variables. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	fromFile, err := ReadFile[Config](path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no config file found, using defaults", "path", path)
	case err != nil:
		return cfg, err
	default:
		if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment")
	}
	ApplyEnv(&cfg)

	return cfg, cfg.Validate()
}

// ApplyEnv overrides configuration with TWOWDB_* environment variables.
func ApplyEnv(cfg *Config) {
	cfg.BaseURL = getEnv("TWOWDB_BASE_URL", cfg.BaseURL)
	cfg.DataDir = getEnv("TWOWDB_DATA_DIR", cfg.DataDir)
	cfg.CacheDir = getEnv("TWOWDB_CACHE_DIR", cfg.CacheDir)
	cfg.UserAgent = getEnv("TWOWDB_USER_AGENT", cfg.UserAgent)
	cfg.MaxWorkers = getEnvInt("TWOWDB_WORKERS", cfg.MaxWorkers)
	cfg.RequestsPerSecond = getEnvFloat("TWOWDB_RPS", cfg.RequestsPerSecond)
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid base_url '%s': must be an http(s) URL", c.BaseURL)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func (c Config) ItemTTL() time.Duration {
	return time.Duration(c.ItemTTLDays) * 24 * time.Hour
}

func (c Config) SearchTTL() time.Duration {
	return time.Duration(c.SearchTTLHours) * time.Hour
}

// RetryPolicy is the retry configuration for requests to the site.
func (c Config) RetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: time.Duration(c.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		slog.Warn("ignoring invalid environment variable", "key", key, "value", val)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
		slog.Warn("ignoring invalid environment variable", "key", key, "value", val)
	}
	return fallback
}
