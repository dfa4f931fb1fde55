// Package metrics exposes Prometheus instrumentation for rule
// evaluation, resilience, caching, and compression.
//
// All metrics share the configured namespace and subsystem prefix and
// are registered on a collector-owned registry, so multiple collectors
// can coexist in one process (useful in tests).
package metrics
