package config

import "time"

// Config is the root configuration structure for the arbiter core.
type Config struct {
	// Source configures where rule definitions are loaded from.
	Source SourceConfig `yaml:"source"`

	// Compression configures payload compression for cached rules.
	Compression CompressionConfig `yaml:"compression"`

	// Watcher configures filesystem change watching (local source only).
	Watcher WatcherConfig `yaml:"watcher"`

	// Refresh configures the periodic version reconciliation sweep.
	Refresh RefreshConfig `yaml:"refresh"`

	// Resilience configures evaluation timeouts, retries, and the
	// per-rule circuit breaker.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Execution configures batch dispatch behavior.
	Execution ExecutionConfig `yaml:"execution"`

	// History configures the execution audit store.
	History HistoryConfig `yaml:"history"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourceConfig selects and configures the rule source provider.
type SourceConfig struct {
	// Mode selects the provider: "local" or "remote".
	// Default: "local"
	Mode string `yaml:"mode"`

	// Local configures the local directory provider.
	Local LocalSourceConfig `yaml:"local"`

	// Remote configures the remote catalog provider.
	Remote RemoteSourceConfig `yaml:"remote"`
}

// LocalSourceConfig configures the local filesystem rule source.
type LocalSourceConfig struct {
	// Root is the directory scanned recursively for rule files.
	Root string `yaml:"root"`

	// Extension is the rule file extension, including the dot.
	// Default: ".json"
	Extension string `yaml:"extension"`

	// MetaSuffix is the sidecar metadata file suffix. A file named
	// <rule>.meta.json overrides the rule's derived version and tags.
	// Default: ".meta.json"
	MetaSuffix string `yaml:"meta_suffix"`

	// StatTTL is how long filesystem stat results are cached during
	// version checks. Default: 2s
	StatTTL time.Duration `yaml:"stat_ttl"`
}

// RemoteSourceConfig configures the remote catalog rule source.
type RemoteSourceConfig struct {
	// BaseURL is the catalog API base URL (no trailing slash).
	BaseURL string `yaml:"base_url"`

	// ProjectID is the catalog project the rules belong to.
	ProjectID string `yaml:"project_id"`

	// APIKey, when set, is sent as a bearer token.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-request HTTP timeout. Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the HTTP connection pool size. Default: 10
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// CompressionConfig configures cached payload compression.
type CompressionConfig struct {
	// Algorithm is "none", "gzip", or "deflate". Default: "gzip"
	Algorithm string `yaml:"algorithm"`

	// MinSize is the payload size in bytes at or below which compression
	// is skipped. Default: 1024
	MinSize int `yaml:"min_size"`

	// MinRatio is the maximum acceptable compressed/original ratio;
	// results above it are stored uncompressed. Default: 0.95
	MinRatio float64 `yaml:"min_ratio"`
}

// WatcherConfig configures the filesystem change watcher.
type WatcherConfig struct {
	// Enabled turns on hot invalidation for the local source.
	Enabled bool `yaml:"enabled"`

	// Debounce is the window in which rapid events for the same rule
	// collapse into one notification. Default: 200ms
	Debounce time.Duration `yaml:"debounce"`
}

// RefreshConfig configures periodic version reconciliation against the
// source.
type RefreshConfig struct {
	// Enabled turns on the background sweep.
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression (robfig/cron standard syntax,
	// including "@every" intervals). Default: "@every 1m"
	Schedule string `yaml:"schedule"`
}

// ResilienceConfig configures evaluation failure isolation.
type ResilienceConfig struct {
	// EvalTimeout bounds each evaluator call. Default: 5s
	EvalTimeout time.Duration `yaml:"eval_timeout"`

	// MaxRetries is the number of retries after the initial attempt for
	// retryable failures. Set to -1 to disable retries. Default: 3
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff is the delay before the first retry; each further
	// retry doubles it up to MaxBackoff. Defaults: 100ms / 5s
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	// FailureThreshold is the consecutive-failure count that opens a
	// rule's circuit. Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long an open circuit rejects calls before
	// allowing a half-open probe. Default: 30s
	Cooldown time.Duration `yaml:"cooldown"`
}

// ExecutionConfig configures batch execution.
type ExecutionConfig struct {
	// MaxConcurrency is the window size for batched dispatch.
	// Default: 32
	MaxConcurrency int `yaml:"max_concurrency"`

	// StopOnError makes sequential dispatch short-circuit on the first
	// failure. The default (false) continues and reports per-rule
	// errors.
	StopOnError bool `yaml:"stop_on_error"`
}

// HistoryConfig configures the execution audit store.
type HistoryConfig struct {
	// Backend is "memory", "sqlite", or "disabled". Default: "memory"
	Backend string `yaml:"backend"`

	// MaxRecords bounds the memory backend. Default: 10000
	MaxRecords int `yaml:"max_records"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteHistoryConfig `yaml:"sqlite"`
}

// SQLiteHistoryConfig configures the SQLite history backend.
type SQLiteHistoryConfig struct {
	// Path is the database file path. Default: "arbiter_history.db"
	Path string `yaml:"path"`

	// MaxOpenConns caps open connections. Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a locked database is retried. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "arbiter" / ""
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// ListenAddress is where the metrics endpoint is served by the
	// binary. Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`
}
