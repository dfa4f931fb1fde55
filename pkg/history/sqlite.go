package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quorum-hq/arbiter/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id         TEXT PRIMARY KEY,
	rule_id    TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	error      TEXT,
	timestamp  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_rule_id ON executions(rule_id);
CREATE INDEX IF NOT EXISTS idx_executions_timestamp ON executions(timestamp);
`

// SQLiteStore persists execution records in a SQLite database with WAL
// mode enabled.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the history database.
// logger may be nil.
func NewSQLiteStore(cfg config.SQLiteHistoryConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.sqlite")

	if cfg.Path == "" {
		cfg.Path = "arbiter_history.db"
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, logger: logger}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	logger.Info("history store opened", "path", cfg.Path)
	return s, nil
}

// Append stores one record.
func (s *SQLiteStore) Append(ctx context.Context, record *Record) error {
	var errVal any
	if record.Error != "" {
		errVal = record.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, rule_id, outcome, duration_ns, error, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.RuleID, record.Outcome,
		record.Duration.Nanoseconds(), errVal, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append execution record: %w", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	var (
		conds []string
		args  []any
	)
	if filter.RuleID != "" {
		conds = append(conds, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	query := "SELECT id, rule_id, outcome, duration_ns, error, timestamp FROM executions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			r       Record
			durNS   int64
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RuleID, &r.Outcome, &durNS, &errText, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		r.Duration = time.Duration(durNS)
		r.Error = errText.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count execution records: %w", err)
	}
	return n, nil
}

// Prune removes records older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM executions WHERE timestamp < ?", before)
	if err != nil {
		return 0, fmt.Errorf("prune execution records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
