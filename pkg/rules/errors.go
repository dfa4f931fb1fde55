package rules

import "fmt"

// EvaluationError represents a failure reported by the external
// evaluator for a single rule. The Retryable flag drives the retry
// policy in the resilience layer.
type EvaluationError struct {
	// RuleID is the rule whose evaluation failed.
	RuleID string

	// Message describes the failure.
	Message string

	// Retryable reports whether the failure is transient and worth
	// retrying.
	Retryable bool

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation of rule %q failed: %s: %v", e.RuleID, e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluation of rule %q failed: %s", e.RuleID, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
