package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"quorum-hq/arbiter/pkg/rules"
)

// Cache is a thread-safe in-memory store of compiled rule entries keyed
// by rule ID. Updates swap entry pointers; in-flight readers of a
// replaced entry keep the old, still-valid entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*rules.Entry

	hits     int64
	misses   int64
	loadTime time.Time
}

// Stats is a point-in-time snapshot of cache state and effectiveness.
type Stats struct {
	// Size is the number of cached entries.
	Size int

	// Hits and Misses count Get outcomes since the last reset.
	Hits   int64
	Misses int64

	// HitRate is Hits / (Hits + Misses), zero when no lookups happened.
	HitRate float64

	// LoadTime is when the cache content last changed wholesale.
	LoadTime time.Time
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		entries:  make(map[string]*rules.Entry),
		loadTime: time.Now(),
	}
}

// Get retrieves an entry by rule ID. The boolean reports a hit; a miss
// means the caller must load the rule from its source and Put it.
func (c *Cache) Get(ruleID string) (*rules.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ruleID]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

// Put inserts or replaces the entry for a rule. The entry is replaced
// wholesale; partial updates of an existing entry are not supported.
func (c *Cache) Put(entry *rules.Entry) error {
	if entry == nil {
		return fmt.Errorf("cache: entry cannot be nil")
	}
	if entry.Metadata.ID == "" {
		return fmt.Errorf("cache: entry rule ID cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Metadata.ID] = entry
	return nil
}

// ReplaceAll atomically swaps the full entry set, used by bulk loads.
func (c *Cache) ReplaceAll(entries map[string]*rules.Entry) error {
	if entries == nil {
		return fmt.Errorf("cache: entries cannot be nil")
	}
	for id, entry := range entries {
		if entry == nil {
			return fmt.Errorf("cache: entry for rule %q cannot be nil", id)
		}
	}

	newEntries := make(map[string]*rules.Entry, len(entries))
	for id, entry := range entries {
		newEntries[id] = entry
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = newEntries
	c.loadTime = time.Now()
	return nil
}

// Invalidate removes the entry for a rule. Returns true when an entry
// was present. The next Get for this rule is a deliberate miss that
// triggers a reload.
func (c *Cache) Invalidate(ruleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[ruleID]; !ok {
		return false
	}
	delete(c.entries, ruleID)
	return true
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*rules.Entry)
	c.loadTime = time.Now()
}

// Has reports whether an entry exists for the rule without counting a
// hit or miss.
func (c *Cache) Has(ruleID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[ruleID]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Keys returns all cached rule IDs, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for id := range c.entries {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a snapshot of all cached entries. The map is a copy;
// the entries themselves are shared and immutable.
func (c *Cache) Entries() map[string]*rules.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*rules.Entry, len(c.entries))
	for id, entry := range c.entries {
		out[id] = entry
	}
	return out
}

// Versions returns the known version of every cached rule, the input to
// source version checks.
func (c *Cache) Versions() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.entries))
	for id, entry := range c.entries {
		out[id] = entry.Metadata.Version
	}
	return out
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Size:     len(c.entries),
		Hits:     c.hits,
		Misses:   c.misses,
		LoadTime: c.loadTime,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// ResetStats clears the hit/miss counters without touching entries.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
}
