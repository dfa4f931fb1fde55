// Package executor dispatches rule evaluations over sets of rules
// selected by ID, tag, or catalog-wide, in sequential, parallel, or
// batched mode. Each evaluation runs through the resilience controller
// and is recorded in the execution history.
package executor
