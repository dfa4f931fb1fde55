package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides of the form ARBITER_SECTION_FIELD
// (e.g., ARBITER_SOURCE_MODE). Environment variables take precedence
// over file values; the merged configuration is re-validated.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Source.Mode, "ARBITER_SOURCE_MODE")
	setString(&cfg.Source.Local.Root, "ARBITER_SOURCE_LOCAL_ROOT")
	setString(&cfg.Source.Local.Extension, "ARBITER_SOURCE_LOCAL_EXTENSION")
	setString(&cfg.Source.Remote.BaseURL, "ARBITER_SOURCE_REMOTE_BASE_URL")
	setString(&cfg.Source.Remote.ProjectID, "ARBITER_SOURCE_REMOTE_PROJECT_ID")
	setString(&cfg.Source.Remote.APIKey, "ARBITER_SOURCE_REMOTE_API_KEY")
	setDuration(&cfg.Source.Remote.Timeout, "ARBITER_SOURCE_REMOTE_TIMEOUT")

	setString(&cfg.Compression.Algorithm, "ARBITER_COMPRESSION_ALGORITHM")
	setInt(&cfg.Compression.MinSize, "ARBITER_COMPRESSION_MIN_SIZE")

	setBool(&cfg.Watcher.Enabled, "ARBITER_WATCHER_ENABLED")
	setDuration(&cfg.Watcher.Debounce, "ARBITER_WATCHER_DEBOUNCE")

	setBool(&cfg.Refresh.Enabled, "ARBITER_REFRESH_ENABLED")
	setString(&cfg.Refresh.Schedule, "ARBITER_REFRESH_SCHEDULE")

	setDuration(&cfg.Resilience.EvalTimeout, "ARBITER_RESILIENCE_EVAL_TIMEOUT")
	setInt(&cfg.Resilience.MaxRetries, "ARBITER_RESILIENCE_MAX_RETRIES")
	setDuration(&cfg.Resilience.InitialBackoff, "ARBITER_RESILIENCE_INITIAL_BACKOFF")
	setDuration(&cfg.Resilience.MaxBackoff, "ARBITER_RESILIENCE_MAX_BACKOFF")
	setInt(&cfg.Resilience.FailureThreshold, "ARBITER_RESILIENCE_FAILURE_THRESHOLD")
	setDuration(&cfg.Resilience.Cooldown, "ARBITER_RESILIENCE_COOLDOWN")

	setInt(&cfg.Execution.MaxConcurrency, "ARBITER_EXECUTION_MAX_CONCURRENCY")
	setBool(&cfg.Execution.StopOnError, "ARBITER_EXECUTION_STOP_ON_ERROR")

	setString(&cfg.History.Backend, "ARBITER_HISTORY_BACKEND")
	setString(&cfg.History.SQLite.Path, "ARBITER_HISTORY_SQLITE_PATH")

	setString(&cfg.Telemetry.Logging.Level, "ARBITER_TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "ARBITER_TELEMETRY_LOGGING_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "ARBITER_TELEMETRY_METRICS_ENABLED")
	setString(&cfg.Telemetry.Metrics.ListenAddress, "ARBITER_TELEMETRY_METRICS_LISTEN_ADDRESS")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
