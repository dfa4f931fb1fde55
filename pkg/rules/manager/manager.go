package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/cache"
	"quorum-hq/arbiter/pkg/rules/compress"
	"quorum-hq/arbiter/pkg/rules/source"
	"quorum-hq/arbiter/pkg/rules/watcher"
	"quorum-hq/arbiter/pkg/telemetry/metrics"
)

// Manager owns the rule pipeline from source to cache.
type Manager struct {
	source    source.Client
	cache     *cache.Cache
	codec     *compress.Codec
	watcher   *watcher.Watcher
	logger    *slog.Logger
	collector *metrics.Collector

	mu     sync.Mutex
	loaded bool
	sub    *watcher.Subscription
}

// Snapshot is an operator view of the pipeline state.
type Snapshot struct {
	Cache       cache.Stats               `json:"cache"`
	Compression compress.Stats            `json:"compression"`
	Rules       map[string]rules.Metadata `json:"rules"`
}

// New builds a manager from configuration. logger and collector may be
// nil. The watcher is created only when enabled and the source is
// local; call StartWatching to activate it.
func New(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rules.manager")

	src, err := source.New(&cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	codec, err := compress.NewCodec(compress.Config{
		Algorithm: compress.Algorithm(cfg.Compression.Algorithm),
		MinSize:   cfg.Compression.MinSize,
		MinRatio:  cfg.Compression.MinRatio,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{
		source:    src,
		cache:     cache.New(),
		codec:     codec,
		logger:    logger,
		collector: collector,
	}

	if cfg.Watcher.Enabled && cfg.Source.Mode == "local" {
		w, err := watcher.New(watcher.Config{
			Root:       cfg.Source.Local.Root,
			Extension:  cfg.Source.Local.Extension,
			MetaSuffix: cfg.Source.Local.MetaSuffix,
			Debounce:   cfg.Watcher.Debounce,
		}, logger)
		if err != nil {
			return nil, err
		}
		m.watcher = w
	}

	return m, nil
}

// LoadAll fetches every rule from the source and atomically replaces
// the cache contents. Returns the number of rules loaded.
func (m *Manager) LoadAll(ctx context.Context) (int, error) {
	entries, err := m.source.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if err := m.compressEntry(entry); err != nil {
			return 0, err
		}
	}

	if err := m.cache.ReplaceAll(entries); err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.loaded = true
	m.mu.Unlock()

	m.collector.UpdateCacheSize(m.cache.Len())
	m.logger.Info("rules loaded", "count", len(entries))
	return len(entries), nil
}

// Entry returns one rule, loading it from the source on a cache miss.
func (m *Manager) Entry(ctx context.Context, ruleID string) (*rules.Entry, error) {
	if entry, ok := m.cache.Get(ruleID); ok {
		m.collector.RecordCacheHit()
		return entry, nil
	}
	m.collector.RecordCacheMiss()

	entry, err := m.source.LoadOne(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if err := m.compressEntry(entry); err != nil {
		return nil, err
	}
	if err := m.cache.Put(entry); err != nil {
		return nil, err
	}
	m.collector.UpdateCacheSize(m.cache.Len())
	return entry, nil
}

// Payload returns a rule's uncompressed payload, ready for evaluation.
func (m *Manager) Payload(ctx context.Context, ruleID string) ([]byte, error) {
	entry, err := m.Entry(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return entry.CompiledBytes(m.codec)
}

// Invalidate drops one rule from the cache. The next access reloads it
// from the source.
func (m *Manager) Invalidate(ruleID string) bool {
	removed := m.cache.Invalidate(ruleID)
	if removed {
		m.collector.UpdateCacheSize(m.cache.Len())
		m.logger.Debug("rule invalidated", "rule_id", ruleID)
	}
	return removed
}

// InvalidateAll empties the cache.
func (m *Manager) InvalidateAll() {
	m.cache.Clear()
	m.collector.UpdateCacheSize(0)
	m.logger.Info("cache cleared")
}

// Refresh reloads the named rules from the source. With no IDs it
// reloads everything.
func (m *Manager) Refresh(ctx context.Context, ruleIDs ...string) error {
	if len(ruleIDs) == 0 {
		_, err := m.LoadAll(ctx)
		return err
	}

	for _, id := range ruleIDs {
		entry, err := m.source.LoadOne(ctx, id)
		if err != nil {
			return fmt.Errorf("refresh %q: %w", id, err)
		}
		if err := m.compressEntry(entry); err != nil {
			return err
		}
		if err := m.cache.Put(entry); err != nil {
			return err
		}
	}
	m.collector.UpdateCacheSize(m.cache.Len())
	return nil
}

// ReconcileVersions asks the source which cached rules are stale and
// invalidates them. Returns the number invalidated.
func (m *Manager) ReconcileVersions(ctx context.Context) (int, error) {
	known := m.cache.Versions()
	if len(known) == 0 {
		return 0, nil
	}

	stale, err := m.source.CheckVersions(ctx, known)
	if err != nil {
		return 0, err
	}

	invalidated := 0
	for id, isStale := range stale {
		if isStale && m.cache.Invalidate(id) {
			invalidated++
		}
	}
	if invalidated > 0 {
		m.collector.UpdateCacheSize(m.cache.Len())
		m.logger.Info("stale rules invalidated", "count", invalidated)
	}
	return invalidated, nil
}

// AllIDs returns every known rule ID, loading the catalog first if the
// cache has never been populated.
func (m *Manager) AllIDs(ctx context.Context) ([]string, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return m.cache.Keys(), nil
}

// IDsByTags returns the IDs of rules carrying at least one of the given
// tags, sorted.
func (m *Manager) IDsByTags(ctx context.Context, tags []string) ([]string, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var ids []string
	for id, entry := range m.cache.Entries() {
		if entry.HasAnyTag(tags) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// StartWatching starts filesystem invalidation. A change to a rule file
// drops the cached copy so the next access reloads it. No-op when the
// watcher is not configured.
func (m *Manager) StartWatching() error {
	if m.watcher == nil {
		return nil
	}

	m.mu.Lock()
	if m.sub == nil {
		m.sub = m.watcher.Subscribe(func(e watcher.Event) {
			m.Invalidate(e.RuleID)
		})
	}
	m.mu.Unlock()

	return m.watcher.Start()
}

// Watcher exposes the change watcher for additional subscriptions. Nil
// when watching is not configured.
func (m *Manager) Watcher() *watcher.Watcher {
	return m.watcher
}

// Codec exposes the payload codec, mainly for stats.
func (m *Manager) Codec() *compress.Codec {
	return m.codec
}

// Snapshot returns cache and compression statistics plus the metadata
// of every cached rule.
func (m *Manager) Snapshot() Snapshot {
	entries := m.cache.Entries()
	meta := make(map[string]rules.Metadata, len(entries))
	for id, entry := range entries {
		meta[id] = entry.Metadata
	}
	return Snapshot{
		Cache:       m.cache.Stats(),
		Compression: m.codec.Stats(),
		Rules:       meta,
	}
}

// Close stops the watcher if one is running.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Stop()
}

func (m *Manager) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := m.LoadAll(ctx)
	return err
}

// compressEntry compresses an entry's payload in place.
func (m *Manager) compressEntry(entry *rules.Entry) error {
	res, err := m.codec.Compress(entry.Payload)
	if err != nil {
		return err
	}
	entry.Payload = res.Data
	entry.Compression = res.Algorithm
	entry.OriginalSize = res.OriginalSize
	m.collector.RecordCompression(string(res.Algorithm), res.OriginalSize, res.CompressedSize)
	return nil
}
