package source

import (
	"context"
	"log/slog"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/rules"
)

// Client fetches rule definitions and answers freshness queries.
// Implementations return entries with uncompressed payloads; the cache
// layer decides whether to compress them.
type Client interface {
	// LoadAll fetches every rule the source knows about.
	LoadAll(ctx context.Context) (map[string]*rules.Entry, error)

	// LoadOne fetches a single rule by ID.
	LoadOne(ctx context.Context, ruleID string) (*rules.Entry, error)

	// CheckVersions compares the caller's known versions against the
	// source. The result maps rule ID to staleness: true means the
	// cached copy is out of date (or gone) and must be reloaded.
	CheckVersions(ctx context.Context, known map[string]string) (map[string]bool, error)
}

// New builds the source client selected by the configuration. The
// provider is chosen once here; callers hold only the Client interface.
func New(cfg *config.SourceConfig, logger *slog.Logger) (Client, error) {
	if cfg == nil {
		return nil, &config.ConfigError{Section: "source", Message: "configuration cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case "local":
		return NewLocal(&cfg.Local, logger)
	case "remote":
		return NewRemote(&cfg.Remote, logger)
	default:
		return nil, &config.ConfigError{Section: "source", Field: "mode", Message: "mode must be \"local\" or \"remote\""}
	}
}
