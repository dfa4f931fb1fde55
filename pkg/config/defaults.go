package config

import "time"

// ApplyDefaults fills in default values for unset configuration fields.
// It is called by Load before validation; callers constructing a Config
// in code should call it themselves.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Mode == "" {
		cfg.Source.Mode = "local"
	}
	if cfg.Source.Local.Extension == "" {
		cfg.Source.Local.Extension = ".json"
	}
	if cfg.Source.Local.MetaSuffix == "" {
		cfg.Source.Local.MetaSuffix = ".meta.json"
	}
	if cfg.Source.Local.StatTTL <= 0 {
		cfg.Source.Local.StatTTL = 2 * time.Second
	}
	if cfg.Source.Remote.Timeout <= 0 {
		cfg.Source.Remote.Timeout = 10 * time.Second
	}
	if cfg.Source.Remote.MaxIdleConns <= 0 {
		cfg.Source.Remote.MaxIdleConns = 10
	}

	if cfg.Compression.Algorithm == "" {
		cfg.Compression.Algorithm = "gzip"
	}
	if cfg.Compression.MinSize <= 0 {
		cfg.Compression.MinSize = 1024
	}
	if cfg.Compression.MinRatio <= 0 {
		cfg.Compression.MinRatio = 0.95
	}

	if cfg.Watcher.Debounce <= 0 {
		cfg.Watcher.Debounce = 200 * time.Millisecond
	}

	if cfg.Refresh.Schedule == "" {
		cfg.Refresh.Schedule = "@every 1m"
	}

	if cfg.Resilience.EvalTimeout <= 0 {
		cfg.Resilience.EvalTimeout = 5 * time.Second
	}
	if cfg.Resilience.MaxRetries < 0 {
		cfg.Resilience.MaxRetries = 0
	} else if cfg.Resilience.MaxRetries == 0 {
		cfg.Resilience.MaxRetries = 3
	}
	if cfg.Resilience.InitialBackoff <= 0 {
		cfg.Resilience.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.Resilience.MaxBackoff <= 0 {
		cfg.Resilience.MaxBackoff = 5 * time.Second
	}
	if cfg.Resilience.FailureThreshold <= 0 {
		cfg.Resilience.FailureThreshold = 5
	}
	if cfg.Resilience.Cooldown <= 0 {
		cfg.Resilience.Cooldown = 30 * time.Second
	}

	if cfg.Execution.MaxConcurrency <= 0 {
		cfg.Execution.MaxConcurrency = 32
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = "memory"
	}
	if cfg.History.MaxRecords <= 0 {
		cfg.History.MaxRecords = 10000
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = "arbiter_history.db"
	}
	if cfg.History.SQLite.MaxOpenConns <= 0 {
		cfg.History.SQLite.MaxOpenConns = 10
	}
	if cfg.History.SQLite.BusyTimeout <= 0 {
		cfg.History.SQLite.BusyTimeout = 5 * time.Second
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "arbiter"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:9464"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}
