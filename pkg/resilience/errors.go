package resilience

import (
	"fmt"
	"time"
)

// CircuitOpenError is returned when a rule's circuit rejects a call,
// either because the cooldown has not elapsed or because another probe
// is already in flight.
type CircuitOpenError struct {
	// RuleID identifies the rule whose circuit is open.
	RuleID string

	// Until is when the circuit next admits a probe. Zero when the
	// rejection is due to an in-flight probe.
	Until time.Time
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	if e.Until.IsZero() {
		return fmt.Sprintf("circuit open for rule %q: probe in flight", e.RuleID)
	}
	return fmt.Sprintf("circuit open for rule %q until %s", e.RuleID, e.Until.Format(time.RFC3339))
}
