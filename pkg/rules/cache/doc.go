// Package cache provides the versioned in-memory store for compiled
// rule entries.
//
// The cache performs no I/O of its own: on a miss, the caller loads the
// rule through the source layer and inserts it. Entries are immutable;
// Put replaces the whole entry atomically so concurrent readers never
// observe a partially updated rule.
package cache
