// Package rules defines the shared domain types for the rule cache and
// execution core: rule metadata, cached rule entries, the Evaluator
// boundary, and evaluation errors.
//
// The packages underneath (source, compress, cache, watcher, manager,
// refresh) build the loading and caching pipeline; pkg/resilience and
// pkg/executor consume these types to run evaluations.
package rules
