package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	LogDir  string `yaml:"log_dir"`

	ProbeTimeoutMS  int `yaml:"probe_timeout_ms"`
	ProbeMaxBytes   int `yaml:"probe_max_bytes"`
	ProbeChunkBytes int `yaml:"probe_chunk_bytes"`

	CacheTTLHours          int `yaml:"cache_ttl_hours"`
	CacheFailureTTLMinutes int `yaml:"cache_failure_ttl_minutes"`

	RateLimit     int `yaml:"rate_limit"`
	RateWindowSec int `yaml:"rate_window_sec"`

	BatchMaxURLs     int `yaml:"batch_max_urls"`
	BatchConcurrency int `yaml:"batch_concurrency"`

	AdminToken string `yaml:"admin_token"`
	UserAgent  string `yaml:"user_agent"`
}

func Default() *Config {
	return &Config{
		Port:                   "8080",
		DataDir:                "./data",
		LogDir:                 "./data/logs",
		ProbeTimeoutMS:         2000,
		ProbeMaxBytes:          1 << 20,
		ProbeChunkBytes:        4096,
		CacheTTLHours:          24,
		CacheFailureTTLMinutes: 10,
		RateLimit:              60,
		RateWindowSec:          60,
		BatchMaxURLs:           32,
		BatchConcurrency:       8,
		UserAgent:              "fastsize/1.0",
	}
}

// Load starts from defaults, applies CONFIG_FILE when set, then environment
// overrides, and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config on top of the defaults. Environment variables
// are not consulted.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.ProbeTimeoutMS = getEnvInt("PROBE_TIMEOUT_MS", c.ProbeTimeoutMS)
	c.ProbeMaxBytes = getEnvInt("PROBE_MAX_BYTES", c.ProbeMaxBytes)
	c.ProbeChunkBytes = getEnvInt("PROBE_CHUNK_BYTES", c.ProbeChunkBytes)
	c.CacheTTLHours = getEnvInt("CACHE_TTL_HOURS", c.CacheTTLHours)
	c.CacheFailureTTLMinutes = getEnvInt("CACHE_FAILURE_TTL_MINUTES", c.CacheFailureTTLMinutes)
	c.RateLimit = getEnvInt("RATE_LIMIT", c.RateLimit)
	c.RateWindowSec = getEnvInt("RATE_WINDOW_SEC", c.RateWindowSec)
	c.BatchMaxURLs = getEnvInt("BATCH_MAX_URLS", c.BatchMaxURLs)
	c.BatchConcurrency = getEnvInt("BATCH_CONCURRENCY", c.BatchConcurrency)
	c.AdminToken = getEnv("ADMIN_TOKEN", c.AdminToken)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
}

var ErrInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"probe_timeout_ms", c.ProbeTimeoutMS},
		{"probe_max_bytes", c.ProbeMaxBytes},
		{"probe_chunk_bytes", c.ProbeChunkBytes},
		{"cache_ttl_hours", c.CacheTTLHours},
		{"rate_limit", c.RateLimit},
		{"rate_window_sec", c.RateWindowSec},
		{"batch_max_urls", c.BatchMaxURLs},
		{"batch_concurrency", c.BatchConcurrency},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, p.name, p.value)
		}
	}
	if c.CacheFailureTTLMinutes < 0 {
		return fmt.Errorf("%w: cache_failure_ttl_minutes must not be negative", ErrInvalid)
	}
	if c.Port == "" {
		return fmt.Errorf("%w: port is empty", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalid)
	}
	return nil
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// FailureTTL is how long definitive failures stay cached; zero disables it.
func (c *Config) FailureTTL() time.Duration {
	return time.Duration(c.CacheFailureTTLMinutes) * time.Minute
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSec) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
