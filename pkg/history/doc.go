// Package history records rule execution outcomes for audit and
// debugging. Two backends are provided: a bounded in-memory ring and a
// SQLite store.
package history
