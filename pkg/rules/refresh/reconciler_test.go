package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"quorum-hq/arbiter/pkg/config"
)

type fakeManager struct {
	calls atomic.Int64
	n     int
	err   error
}

func (f *fakeManager) ReconcileVersions(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestReconciler_RunNow(t *testing.T) {
	fm := &fakeManager{n: 2}
	r := New(config.RefreshConfig{Schedule: "@every 1m"}, fm, nil)

	r.RunNow(context.Background())
	if got := fm.calls.Load(); got != 1 {
		t.Errorf("ReconcileVersions calls = %d, want 1", got)
	}
}

func TestReconciler_RunNowSurvivesError(t *testing.T) {
	fm := &fakeManager{err: errors.New("source down")}
	r := New(config.RefreshConfig{Schedule: "@every 1m"}, fm, nil)

	// Must not panic; the error is logged and the schedule continues.
	r.RunNow(context.Background())
}

func TestReconciler_StartStop(t *testing.T) {
	fm := &fakeManager{}
	r := New(config.RefreshConfig{Schedule: "@every 1h"}, fm, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if r.NextRun() == nil {
		t.Error("NextRun() = nil, want scheduled time")
	}

	// Idempotent.
	if err := r.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	r.Stop()
	if r.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
	r.Stop() // no-op
}

func TestReconciler_InvalidSchedule(t *testing.T) {
	r := New(config.RefreshConfig{Schedule: "not a schedule"}, &fakeManager{}, nil)
	if err := r.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want invalid schedule error")
	}
}

func TestReconciler_EmptyScheduleIsNoop(t *testing.T) {
	r := New(config.RefreshConfig{}, &fakeManager{}, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true with empty schedule")
	}
}
