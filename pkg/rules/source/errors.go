package source

import (
	"errors"
	"fmt"
)

// Error represents a rule loading failure from either provider.
type Error struct {
	// Provider is "remote" or "local".
	Provider string

	// Operation is the failing call ("load_all", "load_one",
	// "check_versions").
	Operation string

	// RuleID is the rule involved, when the failure is rule-scoped.
	RuleID string

	// Message describes the failure.
	Message string

	// Retryable reports whether the failure is transient (network
	// errors, 5xx responses) as opposed to permanent (malformed
	// payload, missing rule, path traversal).
	Retryable bool

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s source: %s failed", e.Provider, e.Operation)
	if e.RuleID != "" {
		msg += fmt.Sprintf(" for rule %q", e.RuleID)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a retryable source error.
func IsRetryable(err error) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Retryable
	}
	return false
}
