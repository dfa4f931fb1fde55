package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()

	w, err := New(Config{
		Root:       t.TempDir(),
		Extension:  ".json",
		MetaSuffix: ".meta.json",
		Debounce:   debounce,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

// collectEvents subscribes and returns a channel plus the subscription.
func collectEvents(w *Watcher) (<-chan Event, *Subscription) {
	ch := make(chan Event, 16)
	sub := w.Subscribe(func(e Event) { ch <- e })
	return ch, sub
}

// synthetic builds an fsnotify event for a rule file under the root.
func synthetic(w *Watcher, relPath string, op fsnotify.Op) fsnotify.Event {
	return fsnotify.Event{
		Name: filepath.Join(w.config.Root, filepath.FromSlash(relPath)),
		Op:   op,
	}
}

func TestWatcher_DebounceLastEventWins(t *testing.T) {
	w := newTestWatcher(t, 50*time.Millisecond)
	events, _ := collectEvents(w)

	// Rapid create/write/remove inside one debounce window.
	w.processEvent(synthetic(w, "pricing/volume.json", fsnotify.Create))
	w.processEvent(synthetic(w, "pricing/volume.json", fsnotify.Write))
	w.processEvent(synthetic(w, "pricing/volume.json", fsnotify.Remove))

	select {
	case e := <-events:
		if e.RuleID != "pricing/volume" {
			t.Errorf("e.RuleID = %q, want %q", e.RuleID, "pricing/volume")
		}
		if e.Type != Deleted {
			t.Errorf("e.Type = %q, want %q (last event wins)", e.Type, Deleted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	// No second delivery for the same burst.
	select {
	case e := <-events:
		t.Fatalf("unexpected extra event: %+v", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IndependentRulesDebounceSeparately(t *testing.T) {
	w := newTestWatcher(t, 50*time.Millisecond)
	events, _ := collectEvents(w)

	w.processEvent(synthetic(w, "a.json", fsnotify.Write))
	w.processEvent(synthetic(w, "b.json", fsnotify.Write))

	got := map[string]ChangeType{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-events:
			got[e.RuleID] = e.Type
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d events, want 2", i)
		}
	}

	if got["a"] != Modified || got["b"] != Modified {
		t.Errorf("events = %v, want a and b modified", got)
	}
}

func TestWatcher_MetaFilesIgnored(t *testing.T) {
	w := newTestWatcher(t, 20*time.Millisecond)
	events, _ := collectEvents(w)

	w.processEvent(synthetic(w, "pricing/volume.meta.json", fsnotify.Write))
	w.processEvent(synthetic(w, "notes.txt", fsnotify.Write))
	w.processEvent(synthetic(w, ".hidden.json", fsnotify.Write))

	select {
	case e := <-events:
		t.Fatalf("unexpected event for filtered file: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CallbackPanicDoesNotStopOthers(t *testing.T) {
	w := newTestWatcher(t, 20*time.Millisecond)

	var mu sync.Mutex
	var order []string

	w.Subscribe(func(Event) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		panic("callback exploded")
	})
	done := make(chan struct{})
	w.Subscribe(func(Event) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		close(done)
	})

	w.processEvent(synthetic(w, "a.json", fsnotify.Write))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestWatcher_SubscriptionRemove(t *testing.T) {
	w := newTestWatcher(t, 20*time.Millisecond)
	events, sub := collectEvents(w)

	sub.Remove()
	sub.Remove() // idempotent

	w.processEvent(synthetic(w, "a.json", fsnotify.Write))

	select {
	case e := <-events:
		t.Fatalf("removed callback received event: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	w, err := New(Config{Root: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v, want nil", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}
	if !w.IsWatching() {
		t.Error("IsWatching() = false after Start()")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
	if w.IsWatching() {
		t.Error("IsWatching() = true after Stop()")
	}
}

func TestWatcher_RestartDeliversAfterCancelledPending(t *testing.T) {
	w := newTestWatcher(t, 100*time.Millisecond)
	events, _ := collectEvents(w)

	// Stop before the debounce elapses; the pending event is cancelled.
	w.processEvent(synthetic(w, "a.json", fsnotify.Write))
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case e := <-events:
		t.Fatalf("event delivered after Stop(): %+v", e)
	case <-time.After(250 * time.Millisecond):
	}

	// A restart replaces the stop channel; delivery resumes against the
	// new one.
	if err := w.Start(); err != nil {
		t.Fatalf("Start() after Stop() error = %v", err)
	}
	w.processEvent(synthetic(w, "b.json", fsnotify.Write))

	select {
	case e := <-events:
		if e.RuleID != "b" {
			t.Errorf("e.RuleID = %q, want %q", e.RuleID, "b")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after restart")
	}
}

func TestWatcher_MissingRootDoesNotFailStart(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-yet")
	w, err := New(Config{Root: root}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() with missing root error = %v, want nil", err)
	}
	defer func() { _ = w.Stop() }()

	if !w.IsWatching() {
		t.Error("IsWatching() = false, want true")
	}
}

func TestWatcher_RealFilesystemEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("filesystem event timing")
	}

	w := newTestWatcher(t, 100*time.Millisecond)
	events, _ := collectEvents(w)

	path := filepath.Join(w.config.Root, "live.json")
	if err := os.WriteFile(path, []byte(`{"node":"root"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case e := <-events:
		if e.RuleID != "live" {
			t.Errorf("e.RuleID = %q, want %q", e.RuleID, "live")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for created rule file")
	}
}
