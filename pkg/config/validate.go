package config

// Validate checks the configuration for invalid values. It returns the
// first problem found as a *ConfigError. ApplyDefaults must run first;
// Validate does not fill in missing values.
func Validate(cfg *Config) error {
	switch cfg.Source.Mode {
	case "local":
		if cfg.Source.Local.Root == "" {
			return &ConfigError{Section: "source", Field: "local.root", Message: "root directory is required in local mode"}
		}
		if cfg.Source.Local.Extension == "" || cfg.Source.Local.Extension[0] != '.' {
			return &ConfigError{Section: "source", Field: "local.extension", Message: "extension must start with a dot"}
		}
	case "remote":
		if cfg.Source.Remote.BaseURL == "" {
			return &ConfigError{Section: "source", Field: "remote.base_url", Message: "base URL is required in remote mode"}
		}
		if cfg.Source.Remote.ProjectID == "" {
			return &ConfigError{Section: "source", Field: "remote.project_id", Message: "project ID is required in remote mode"}
		}
	default:
		return &ConfigError{Section: "source", Field: "mode", Message: "mode must be \"local\" or \"remote\""}
	}

	switch cfg.Compression.Algorithm {
	case "none", "gzip", "deflate":
	default:
		return &ConfigError{Section: "compression", Field: "algorithm", Message: "algorithm must be \"none\", \"gzip\", or \"deflate\""}
	}
	if cfg.Compression.MinRatio <= 0 || cfg.Compression.MinRatio > 1 {
		return &ConfigError{Section: "compression", Field: "min_ratio", Message: "min_ratio must be in (0, 1]"}
	}

	if cfg.Watcher.Enabled && cfg.Source.Mode != "local" {
		return &ConfigError{Section: "watcher", Field: "enabled", Message: "the change watcher requires the local source"}
	}

	if cfg.Resilience.MaxBackoff < cfg.Resilience.InitialBackoff {
		return &ConfigError{Section: "resilience", Field: "max_backoff", Message: "max_backoff must be >= initial_backoff"}
	}
	if cfg.Resilience.FailureThreshold < 1 {
		return &ConfigError{Section: "resilience", Field: "failure_threshold", Message: "failure_threshold must be at least 1"}
	}

	if cfg.Execution.MaxConcurrency < 1 {
		return &ConfigError{Section: "execution", Field: "max_concurrency", Message: "max_concurrency must be at least 1"}
	}

	switch cfg.History.Backend {
	case "memory", "sqlite", "disabled":
	default:
		return &ConfigError{Section: "history", Field: "backend", Message: "backend must be \"memory\", \"sqlite\", or \"disabled\""}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Section: "telemetry", Field: "logging.level", Message: "level must be debug, info, warn, or error"}
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return &ConfigError{Section: "telemetry", Field: "logging.format", Message: "format must be json or text"}
	}

	return nil
}
