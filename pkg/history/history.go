package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quorum-hq/arbiter/pkg/config"
)

// Record is one rule execution outcome.
type Record struct {
	// ID is a generated unique identifier.
	ID string `json:"id"`

	// RuleID identifies the evaluated rule.
	RuleID string `json:"rule_id"`

	// Outcome is "success", "error", "timeout", or "rejected".
	Outcome string `json:"outcome"`

	// Duration is the evaluation latency.
	Duration time.Duration `json:"duration"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	// Timestamp is when the evaluation completed.
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord creates a record with a fresh ID and the current time.
func NewRecord(ruleID, outcome string, duration time.Duration, evalErr error) *Record {
	r := &Record{
		ID:        uuid.NewString(),
		RuleID:    ruleID,
		Outcome:   outcome,
		Duration:  duration,
		Timestamp: time.Now().UTC(),
	}
	if evalErr != nil {
		r.Error = evalErr.Error()
	}
	return r
}

// Filter selects records for Query. Zero-value fields match everything.
type Filter struct {
	// RuleID restricts results to one rule.
	RuleID string

	// Outcome restricts results to one outcome.
	Outcome string

	// Since excludes records older than this time.
	Since time.Time

	// Limit caps the result count; 0 means no cap. Results are newest
	// first.
	Limit int
}

// Store persists execution records.
type Store interface {
	// Append stores one record.
	Append(ctx context.Context, record *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, filter Filter) ([]*Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Prune removes records older than the cutoff, returning how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

// New builds the store selected by the configuration. The "disabled"
// backend returns a nil-safe no-op store.
func New(cfg config.HistoryConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.MaxRecords), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite, logger)
	case "disabled":
		return nopStore{}, nil
	default:
		return nil, &config.ConfigError{Section: "history", Field: "backend", Message: "backend must be \"memory\", \"sqlite\", or \"disabled\""}
	}
}

// nopStore discards everything.
type nopStore struct{}

func (nopStore) Append(context.Context, *Record) error           { return nil }
func (nopStore) Query(context.Context, Filter) ([]*Record, error) { return nil, nil }
func (nopStore) Count(context.Context) (int, error)              { return 0, nil }
func (nopStore) Prune(context.Context, time.Time) (int, error)   { return 0, nil }
func (nopStore) Close() error                                    { return nil }
