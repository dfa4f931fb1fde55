package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validLocalConfig() *Config {
	cfg := &Config{}
	cfg.Source.Mode = "local"
	cfg.Source.Local.Root = "/rules"
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Source.Mode != "local" {
		t.Errorf("Source.Mode = %q, want %q", cfg.Source.Mode, "local")
	}
	if cfg.Source.Local.Extension != ".json" {
		t.Errorf("Source.Local.Extension = %q, want %q", cfg.Source.Local.Extension, ".json")
	}
	if cfg.Source.Local.MetaSuffix != ".meta.json" {
		t.Errorf("Source.Local.MetaSuffix = %q, want %q", cfg.Source.Local.MetaSuffix, ".meta.json")
	}
	if cfg.Compression.MinSize != 1024 {
		t.Errorf("Compression.MinSize = %d, want 1024", cfg.Compression.MinSize)
	}
	if cfg.Resilience.MaxRetries != 3 {
		t.Errorf("Resilience.MaxRetries = %d, want 3", cfg.Resilience.MaxRetries)
	}
	if cfg.Resilience.FailureThreshold != 5 {
		t.Errorf("Resilience.FailureThreshold = %d, want 5", cfg.Resilience.FailureThreshold)
	}
	if cfg.Execution.MaxConcurrency != 32 {
		t.Errorf("Execution.MaxConcurrency = %d, want 32", cfg.Execution.MaxConcurrency)
	}
	if cfg.Watcher.Debounce != 200*time.Millisecond {
		t.Errorf("Watcher.Debounce = %v, want 200ms", cfg.Watcher.Debounce)
	}
}

func TestApplyDefaults_RetriesDisabled(t *testing.T) {
	cfg := &Config{}
	cfg.Resilience.MaxRetries = -1
	ApplyDefaults(cfg)

	if cfg.Resilience.MaxRetries != 0 {
		t.Errorf("Resilience.MaxRetries = %d, want 0", cfg.Resilience.MaxRetries)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validLocalConfig()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source mode", func(c *Config) { c.Source.Mode = "s3" }},
		{"local without root", func(c *Config) { c.Source.Local.Root = "" }},
		{"remote without base url", func(c *Config) { c.Source.Mode = "remote" }},
		{"bad compression algorithm", func(c *Config) { c.Compression.Algorithm = "zstd" }},
		{"bad min ratio", func(c *Config) { c.Compression.MinRatio = 1.5 }},
		{"watcher on remote source", func(c *Config) {
			c.Source.Mode = "remote"
			c.Source.Remote.BaseURL = "http://catalog"
			c.Source.Remote.ProjectID = "p1"
			c.Watcher.Enabled = true
		}},
		{"backoff inversion", func(c *Config) {
			c.Resilience.InitialBackoff = time.Second
			c.Resilience.MaxBackoff = time.Millisecond
		}},
		{"zero failure threshold", func(c *Config) { c.Resilience.FailureThreshold = 0 }},
		{"unknown history backend", func(c *Config) { c.History.Backend = "postgres" }},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLocalConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}

			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() error type = %T, want *ConfigError", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbiter.yaml")

	content := `
source:
  mode: local
  local:
    root: /var/lib/arbiter/rules
    extension: .json
compression:
  algorithm: deflate
resilience:
  max_retries: 2
  failure_threshold: 4
execution:
  max_concurrency: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.Local.Root != "/var/lib/arbiter/rules" {
		t.Errorf("Source.Local.Root = %q, want %q", cfg.Source.Local.Root, "/var/lib/arbiter/rules")
	}
	if cfg.Compression.Algorithm != "deflate" {
		t.Errorf("Compression.Algorithm = %q, want %q", cfg.Compression.Algorithm, "deflate")
	}
	if cfg.Resilience.MaxRetries != 2 {
		t.Errorf("Resilience.MaxRetries = %d, want 2", cfg.Resilience.MaxRetries)
	}
	if cfg.Execution.MaxConcurrency != 8 {
		t.Errorf("Execution.MaxConcurrency = %d, want 8", cfg.Execution.MaxConcurrency)
	}
	// Defaults still applied for unset fields.
	if cfg.Resilience.Cooldown != 30*time.Second {
		t.Errorf("Resilience.Cooldown = %v, want 30s", cfg.Resilience.Cooldown)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestLoad_InvalidConfigIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbiter.yaml")
	if err := os.WriteFile(path, []byte("source:\n  mode: carrier-pigeon\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := Load(path)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("Load() error type = %T, want *ConfigError", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbiter.yaml")
	content := "source:\n  mode: local\n  local:\n    root: /rules\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("ARBITER_EXECUTION_MAX_CONCURRENCY", "4")
	t.Setenv("ARBITER_RESILIENCE_COOLDOWN", "10s")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides() error = %v", err)
	}

	if cfg.Execution.MaxConcurrency != 4 {
		t.Errorf("Execution.MaxConcurrency = %d, want 4", cfg.Execution.MaxConcurrency)
	}
	if cfg.Resilience.Cooldown != 10*time.Second {
		t.Errorf("Resilience.Cooldown = %v, want 10s", cfg.Resilience.Cooldown)
	}
}
