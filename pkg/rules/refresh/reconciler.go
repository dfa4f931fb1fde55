package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quorum-hq/arbiter/pkg/config"
)

// Reconcilable is the slice of the rule manager the reconciler needs.
type Reconcilable interface {
	ReconcileVersions(ctx context.Context) (int, error)
}

// Reconciler periodically checks cached rule versions against the
// source and invalidates stale entries.
type Reconciler struct {
	manager  Reconcilable
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a reconciler. logger may be nil.
func New(cfg config.RefreshConfig, manager Reconcilable, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		manager:  manager,
		schedule: cfg.Schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "rules.refresh"),
	}
}

// Start schedules the reconciliation sweep. The schedule uses standard
// cron syntax, including "@every" intervals. Stopping follows the
// context.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if r.schedule == "" {
		r.logger.Info("refresh schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		r.RunNow(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("refresh reconciler started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// RunNow performs one reconciliation sweep immediately.
func (r *Reconciler) RunNow(ctx context.Context) {
	invalidated, err := r.manager.ReconcileVersions(ctx)
	if err != nil {
		r.logger.Error("version reconciliation failed", "error", err)
		return
	}
	if invalidated > 0 {
		r.logger.Info("version reconciliation completed", "invalidated", invalidated)
	} else {
		r.logger.Debug("version reconciliation completed, cache is fresh")
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("refresh reconciler stopped")
}

// IsRunning reports whether the schedule is active.
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled sweep time, or nil when idle.
func (r *Reconciler) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
