package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quorum-hq/arbiter/pkg/config"
)

// storeUnderTest runs the shared Store contract against a backend.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	records := []*Record{
		{ID: "1", RuleID: "a", Outcome: "success", Duration: time.Millisecond, Timestamp: base},
		{ID: "2", RuleID: "a", Outcome: "error", Error: "boom", Duration: 2 * time.Millisecond, Timestamp: base.Add(time.Minute)},
		{ID: "3", RuleID: "b", Outcome: "success", Duration: 3 * time.Millisecond, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append(%s) error = %v", r.ID, err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	// Newest first, no filter.
	all, err := s.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "3" || all[2].ID != "1" {
		t.Errorf("Query() order = %v, want newest first", ids(all))
	}

	// By rule.
	byRule, err := s.Query(ctx, Filter{RuleID: "a"})
	if err != nil {
		t.Fatalf("Query(rule a) error = %v", err)
	}
	if len(byRule) != 2 {
		t.Errorf("Query(rule a) len = %d, want 2", len(byRule))
	}

	// By outcome with limit.
	failed, err := s.Query(ctx, Filter{Outcome: "error", Limit: 5})
	if err != nil {
		t.Fatalf("Query(error) error = %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "boom" {
		t.Errorf("Query(error) = %v, want single boom record", ids(failed))
	}

	// Since filter.
	recent, err := s.Query(ctx, Filter{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("Query(since) error = %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "3" {
		t.Errorf("Query(since) = %v, want [3]", ids(recent))
	}

	// Prune the oldest two.
	removed, err := s.Prune(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() = %d, want 2", removed)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() after prune = %d, want 1", n)
	}
}

func ids(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore_Contract(t *testing.T) {
	storeUnderTest(t, NewMemoryStore(100))
}

func TestSQLiteStore_Contract(t *testing.T) {
	s, err := NewSQLiteStore(config.SQLiteHistoryConfig{
		Path: filepath.Join(t.TempDir(), "history.db"),
	}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	storeUnderTest(t, s)
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		rec := &Record{ID: id, RuleID: "r", Outcome: "success", Timestamp: time.Now()}
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := s.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	got := ids(all)
	if len(got) != 2 || got[0] != "3" || got[1] != "2" {
		t.Errorf("Query() = %v, want [3 2]", got)
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord("pricing/volume", "error", 5*time.Millisecond, errors.New("boom"))
	if r.ID == "" {
		t.Error("r.ID is empty, want generated ID")
	}
	if r.Error != "boom" {
		t.Errorf("r.Error = %q, want %q", r.Error, "boom")
	}
	if r.Timestamp.IsZero() {
		t.Error("r.Timestamp is zero")
	}
}

func TestNew_BackendSelection(t *testing.T) {
	if _, err := New(config.HistoryConfig{Backend: "memory"}, nil); err != nil {
		t.Errorf("New(memory) error = %v", err)
	}
	if _, err := New(config.HistoryConfig{Backend: "disabled"}, nil); err != nil {
		t.Errorf("New(disabled) error = %v", err)
	}
	if _, err := New(config.HistoryConfig{Backend: "redis"}, nil); err == nil {
		t.Error("New(redis) error = nil, want config error")
	}
}
