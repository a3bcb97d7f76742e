package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "DATA_DIR", "LOG_DIR", "PROBE_TIMEOUT_MS", "PROBE_MAX_BYTES",
	"PROBE_CHUNK_BYTES", "CACHE_TTL_HOURS", "CACHE_FAILURE_TTL_MINUTES",
	"RATE_LIMIT", "RATE_WINDOW_SEC", "BATCH_MAX_URLS", "BATCH_CONCURRENCY",
	"ADMIN_TOKEN", "USER_AGENT", "CONFIG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fastsize.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "./data")
	}
	if cfg.ProbeTimeout() != 2*time.Second {
		t.Errorf("ProbeTimeout() = %v, want 2s", cfg.ProbeTimeout())
	}
	if cfg.ProbeMaxBytes != 1048576 {
		t.Errorf("ProbeMaxBytes = %d", cfg.ProbeMaxBytes)
	}
	if cfg.CacheTTL() != 24*time.Hour {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if cfg.FailureTTL() != 10*time.Minute {
		t.Errorf("FailureTTL() = %v", cfg.FailureTTL())
	}
	if cfg.RateWindow() != time.Minute {
		t.Errorf("RateWindow() = %v", cfg.RateWindow())
	}
	if cfg.AdminToken != "" {
		t.Errorf("AdminToken = %q, want empty", cfg.AdminToken)
	}
	if cfg.UserAgent != "fastsize/1.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATA_DIR", "/tmp/test")
	t.Setenv("PROBE_TIMEOUT_MS", "500")
	t.Setenv("BATCH_CONCURRENCY", "2")
	t.Setenv("ADMIN_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DataDir != "/tmp/test" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/tmp/test")
	}
	if cfg.ProbeTimeout() != 500*time.Millisecond {
		t.Errorf("ProbeTimeout() = %v", cfg.ProbeTimeout())
	}
	if cfg.BatchConcurrency != 2 {
		t.Errorf("BatchConcurrency = %d", cfg.BatchConcurrency)
	}
	if cfg.AdminToken != "secret" {
		t.Errorf("AdminToken = %q", cfg.AdminToken)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: "9000"
probe_max_bytes: 65536
batch_max_urls: 4
user_agent: from-file
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BATCH_MAX_URLS", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want file value", cfg.Port)
	}
	if cfg.ProbeMaxBytes != 65536 {
		t.Errorf("ProbeMaxBytes = %d, want file value", cfg.ProbeMaxBytes)
	}
	if cfg.BatchMaxURLs != 16 {
		t.Errorf("BatchMaxURLs = %d, want env override", cfg.BatchMaxURLs)
	}
	if cfg.UserAgent != "from-file" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.CacheTTLHours != 24 {
		t.Errorf("CacheTTLHours = %d, want default", cfg.CacheTTLHours)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, "port: [unterminated"))
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on invalid YAML")
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "1111")
	cfg, err := LoadFile(writeFile(t, "rate_limit: 5\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, LoadFile must ignore env", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.ProbeTimeoutMS = 0 }},
		{"negative max bytes", func(c *Config) { c.ProbeMaxBytes = -1 }},
		{"zero concurrency", func(c *Config) { c.BatchConcurrency = 0 }},
		{"negative failure ttl", func(c *Config) { c.CacheFailureTTLMinutes = -1 }},
		{"empty port", func(c *Config) { c.Port = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	cfg := Default()
	cfg.CacheFailureTTLMinutes = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero failure ttl should be allowed: %v", err)
	}
}

func TestGetEnvInt_InvalidValue(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")

	if got := getEnvInt("TEST_INT", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want fallback 42", got)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RateLimit != 60 {
		t.Errorf("RateLimit = %d, want default", cfg.RateLimit)
	}
}
