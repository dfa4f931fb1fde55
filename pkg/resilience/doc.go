// Package resilience wraps rule evaluation with timeouts, retries with
// exponential backoff, and per-rule circuit breakers.
//
// The Controller is the entry point. Each rule gets its own breaker so
// one persistently failing rule cannot block evaluation of the others.
// A breaker moves from CLOSED to OPEN after a run of consecutive
// failures, rejects calls during the cooldown, then admits exactly one
// half-open probe to decide between closing and reopening.
package resilience
