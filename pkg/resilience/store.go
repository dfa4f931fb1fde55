package resilience

import (
	"sync"
	"time"
)

// CircuitStore holds the per-rule breakers, creating them on first use.
type CircuitStore struct {
	threshold int
	cooldown  time.Duration
	notify    TransitionFunc

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewCircuitStore creates a store whose breakers share the given
// threshold and cooldown. notify may be nil.
func NewCircuitStore(threshold int, cooldown time.Duration, notify TransitionFunc) *CircuitStore {
	return &CircuitStore{
		threshold: threshold,
		cooldown:  cooldown,
		notify:    notify,
		breakers:  make(map[string]*Breaker),
	}
}

// Get returns the breaker for a rule, creating it if needed.
func (s *CircuitStore) Get(ruleID string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[ruleID]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[ruleID]; ok {
		return b
	}
	b = NewBreaker(ruleID, s.threshold, s.cooldown, s.notify)
	s.breakers[ruleID] = b
	return b
}

// Reset closes the breaker for a rule. Returns false when the rule has
// no breaker yet.
func (s *CircuitStore) Reset(ruleID string) bool {
	s.mu.RLock()
	b, ok := s.breakers[ruleID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	b.Reset(time.Now())
	return true
}

// ResetAll closes every breaker.
func (s *CircuitStore) ResetAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for _, b := range s.breakers {
		b.Reset(now)
	}
}

// Snapshot returns the current state of every breaker, keyed by rule
// ID.
func (s *CircuitStore) Snapshot() map[string]BreakerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]BreakerSnapshot, len(s.breakers))
	for id, b := range s.breakers {
		out[id] = b.Snapshot()
	}
	return out
}
