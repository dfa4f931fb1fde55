package resilience

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State string

const (
	// StateClosed admits all calls.
	StateClosed State = "closed"

	// StateOpen rejects calls until the cooldown elapses.
	StateOpen State = "open"

	// StateHalfOpen admits a single probe call.
	StateHalfOpen State = "half_open"
)

// TransitionFunc is notified whenever a breaker changes state.
type TransitionFunc func(ruleID string, to State)

// Breaker is a per-rule circuit breaker.
//
// The half-open state admits exactly one probe. Concurrent calls that
// arrive while the probe is in flight are rejected immediately rather
// than queued, so a slow probe cannot pile up callers.
type Breaker struct {
	ruleID    string
	threshold int
	cooldown  time.Duration
	notify    TransitionFunc

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	nextAttempt         time.Time
	probing             bool
	transitions         int64
	lastTransition      time.Time
}

// BreakerSnapshot is a point-in-time view of one breaker.
type BreakerSnapshot struct {
	RuleID              string    `json:"rule_id"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	NextAttempt         time.Time `json:"next_attempt,omitzero"`
	Transitions         int64     `json:"transitions"`
	LastTransition      time.Time `json:"last_transition,omitzero"`
}

// NewBreaker creates a closed breaker for one rule. notify may be nil.
func NewBreaker(ruleID string, threshold int, cooldown time.Duration, notify TransitionFunc) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		ruleID:    ruleID,
		threshold: threshold,
		cooldown:  cooldown,
		notify:    notify,
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed. probe is true when the
// caller holds the single half-open probe slot; such a call must report
// its outcome via OnSuccess or OnFailure so the slot is released.
func (b *Breaker) Allow(now time.Time) (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil

	case StateOpen:
		if now.Before(b.nextAttempt) {
			return false, &CircuitOpenError{RuleID: b.ruleID, Until: b.nextAttempt}
		}
		b.transitionLocked(StateHalfOpen, now)
		b.probing = true
		return true, nil

	case StateHalfOpen:
		if b.probing {
			return false, &CircuitOpenError{RuleID: b.ruleID}
		}
		b.probing = true
		return true, nil
	}

	return false, nil
}

// OnSuccess records a successful call. A successful half-open probe
// closes the circuit.
func (b *Breaker) OnSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0

	if b.state == StateHalfOpen {
		b.probing = false
		b.transitionLocked(StateClosed, now)
	}
}

// OnFailure records a failed call. A failed half-open probe reopens the
// circuit; in the closed state the threshold opens it.
func (b *Breaker) OnFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probing = false
		b.nextAttempt = now.Add(b.cooldown)
		b.transitionLocked(StateOpen, now)

	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.threshold {
			b.nextAttempt = now.Add(b.cooldown)
			b.transitionLocked(StateOpen, now)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed and clears its counters.
func (b *Breaker) Reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probing = false
	b.nextAttempt = time.Time{}
	if b.state != StateClosed {
		b.transitionLocked(StateClosed, now)
	}
}

// Snapshot returns a copy of the breaker's current state.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		RuleID:              b.ruleID,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		NextAttempt:         b.nextAttempt,
		Transitions:         b.transitions,
		LastTransition:      b.lastTransition,
	}
}

// transitionLocked moves the breaker to a new state. Caller holds mu.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	b.state = to
	b.transitions++
	b.lastTransition = now
	if to == StateClosed {
		b.consecutiveFailures = 0
	}
	if b.notify != nil {
		b.notify(b.ruleID, to)
	}
}
