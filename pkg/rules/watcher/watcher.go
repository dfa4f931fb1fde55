package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"quorum-hq/arbiter/pkg/config"
)

// ChangeType classifies a rule change.
type ChangeType string

const (
	// Added means a new rule file appeared.
	Added ChangeType = "added"

	// Modified means an existing rule file was rewritten.
	Modified ChangeType = "modified"

	// Deleted means a rule file was removed or renamed away.
	Deleted ChangeType = "deleted"
)

// Event is a debounced rule change notification.
type Event struct {
	// RuleID is the slash-normalized rule identifier.
	RuleID string

	// Type is the last change observed within the debounce window.
	Type ChangeType

	// Path is the filesystem path that changed.
	Path string
}

// Callback receives rule change events. Callbacks run on the watcher's
// event goroutine; long-running work should be handed off.
type Callback func(Event)

// Config contains configuration for the Watcher.
type Config struct {
	// Root is the rules directory to watch recursively.
	Root string

	// Extension is the rule file extension, including the dot.
	Extension string

	// MetaSuffix marks metadata sidecar files, which are excluded from
	// rule-change events.
	MetaSuffix string

	// Debounce is the window in which rapid events for the same rule
	// collapse into one notification. Default: 200ms
	Debounce time.Duration
}

// Watcher watches the rules root and fans out debounced change events
// to registered callbacks.
type Watcher struct {
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	fsw       *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}
	rootAdded bool

	cbMu      sync.Mutex
	callbacks []*registration
	nextID    int

	pendMu  sync.Mutex
	pending map[string]*pendingChange
}

// registration pairs a callback with its handle ID, preserving
// registration order.
type registration struct {
	id int
	fn Callback
}

// pendingChange is a debounced event waiting for its quiet period.
type pendingChange struct {
	event Event
	timer *time.Timer
}

// Subscription is the handle returned by Subscribe. Remove is
// idempotent.
type Subscription struct {
	w  *Watcher
	id int
}

// New creates a watcher for the given configuration. The root does not
// need to exist yet; the watcher picks it up once it appears.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, &config.ConfigError{Section: "watcher", Field: "root", Message: "root directory is required"}
	}
	if cfg.Extension == "" {
		cfg.Extension = ".json"
	}
	if cfg.MetaSuffix == "" {
		cfg.MetaSuffix = ".meta.json"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, &config.ConfigError{Section: "watcher", Field: "root", Message: "root cannot be resolved: " + err.Error()}
	}
	cfg.Root = root

	return &Watcher{
		config:  cfg,
		logger:  logger.With("component", "rules.watcher"),
		pending: make(map[string]*pendingChange),
	}, nil
}

// Start begins watching. Starting an already running watcher is a
// no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.rootAdded = false

	if err := w.addTree(w.config.Root); err == nil {
		w.rootAdded = true
	} else {
		w.logger.Debug("rules root not present yet, will retry", "root", w.config.Root)
	}

	w.running = true
	go w.run()

	w.logger.Info("change watcher started",
		"root", w.config.Root,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)
	return nil
}

// Stop halts watching and cancels pending debounced events. Stopping a
// stopped watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.pendMu.Lock()
	for id, pc := range w.pending {
		pc.timer.Stop()
		delete(w.pending, id)
	}
	w.pendMu.Unlock()

	err := w.fsw.Close()
	w.logger.Info("change watcher stopped")
	return err
}

// IsWatching reports whether the watcher is running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Subscribe registers a callback and returns its removal handle.
func (w *Watcher) Subscribe(fn Callback) *Subscription {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()

	w.nextID++
	w.callbacks = append(w.callbacks, &registration{id: w.nextID, fn: fn})
	return &Subscription{w: w, id: w.nextID}
}

// Remove unregisters the callback. Removing twice is a no-op.
func (s *Subscription) Remove() {
	s.w.cbMu.Lock()
	defer s.w.cbMu.Unlock()

	for i, reg := range s.w.callbacks {
		if reg.id == s.id {
			s.w.callbacks = append(s.w.callbacks[:i], s.w.callbacks[i+1:]...)
			return
		}
	}
}

// run is the event loop.
func (w *Watcher) run() {
	defer close(w.doneCh)

	// Retry adding a missing root until it appears.
	rootRetry := time.NewTicker(time.Second)
	defer rootRetry.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case <-rootRetry.C:
			w.mu.Lock()
			added := w.rootAdded
			w.mu.Unlock()
			if !added {
				if err := w.addTree(w.config.Root); err == nil {
					w.mu.Lock()
					w.rootAdded = true
					w.mu.Unlock()
					w.logger.Info("rules root appeared, watching", "root", w.config.Root)
				}
			}

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.processEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Keep watching despite transient errors.
			w.logger.Error("watch error", "error", err)
		}
	}
}

// processEvent filters, classifies, and debounces one fsnotify event.
func (w *Watcher) processEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return
	}

	// New directories join the watch set.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}
	// Metadata sidecars affect metadata, not payloads.
	if strings.HasSuffix(event.Name, w.config.MetaSuffix) {
		return
	}
	if !strings.HasSuffix(event.Name, w.config.Extension) {
		return
	}

	var changeType ChangeType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		changeType = Added
	case event.Op&fsnotify.Write == fsnotify.Write:
		changeType = Modified
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		changeType = Deleted
	default:
		return
	}

	w.debounce(Event{
		RuleID: w.deriveID(event.Name),
		Type:   changeType,
		Path:   event.Name,
	})
}

// debounce coalesces rapid events per rule ID; the last change type
// within the window wins.
func (w *Watcher) debounce(event Event) {
	w.pendMu.Lock()
	defer w.pendMu.Unlock()

	if pc, ok := w.pending[event.RuleID]; ok {
		pc.event = event
		pc.timer.Reset(w.config.Debounce)
		return
	}

	pc := &pendingChange{event: event}
	pc.timer = time.AfterFunc(w.config.Debounce, func() {
		w.fire(event.RuleID)
	})
	w.pending[event.RuleID] = pc
}

// fire delivers the pending event for a rule to all callbacks.
func (w *Watcher) fire(ruleID string) {
	w.pendMu.Lock()
	pc, ok := w.pending[ruleID]
	if ok {
		delete(w.pending, ruleID)
	}
	w.pendMu.Unlock()
	if !ok {
		return
	}

	// stopCh is replaced on restart; snapshot it under the same lock
	// that guards the swap.
	w.mu.Lock()
	stopCh := w.stopCh
	w.mu.Unlock()
	select {
	case <-stopCh:
		return
	default:
	}

	w.logger.Debug("rule change",
		"rule_id", pc.event.RuleID,
		"type", string(pc.event.Type),
	)

	w.cbMu.Lock()
	regs := make([]*registration, len(w.callbacks))
	copy(regs, w.callbacks)
	w.cbMu.Unlock()

	for _, reg := range regs {
		w.invoke(reg, pc.event)
	}
}

// invoke runs one callback, containing panics so the remaining
// callbacks still run.
func (w *Watcher) invoke(reg *registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("change callback panicked",
				"rule_id", event.RuleID,
				"panic", r,
			)
		}
	}()
	reg.fn(event)
}

// addTree adds a directory and all subdirectories to the fsnotify
// watch set.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// deriveID converts a rule file path to its rule ID.
func (w *Watcher) deriveID(path string) string {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, w.config.Extension)
	return filepath.ToSlash(rel)
}
