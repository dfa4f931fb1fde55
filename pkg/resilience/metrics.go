package resilience

import (
	"sync"
	"time"
)

// Metrics is a point-in-time view of one rule's evaluation counters.
type Metrics struct {
	Total          int64         `json:"total"`
	Succeeded      int64         `json:"succeeded"`
	Failed         int64         `json:"failed"`
	Timeouts       int64         `json:"timeouts"`
	Retries        int64         `json:"retries"`
	Rejected       int64         `json:"rejected"`
	MinLatency     time.Duration `json:"min_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	AverageLatency time.Duration `json:"average_latency"`
}

// ruleCounters accumulates raw counters for one rule.
type ruleCounters struct {
	total        int64
	succeeded    int64
	failed       int64
	timeouts     int64
	retries      int64
	rejected     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	totalLatency time.Duration
}

// MetricsStore tracks per-rule evaluation counters for operator
// snapshots.
type MetricsStore struct {
	mu    sync.Mutex
	rules map[string]*ruleCounters
}

// NewMetricsStore creates an empty metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{rules: make(map[string]*ruleCounters)}
}

func (s *MetricsStore) counters(ruleID string) *ruleCounters {
	rc, ok := s.rules[ruleID]
	if !ok {
		rc = &ruleCounters{}
		s.rules[ruleID] = rc
	}
	return rc
}

// RecordSuccess records one successful attempt.
func (s *MetricsStore) RecordSuccess(ruleID string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc := s.counters(ruleID)
	rc.total++
	rc.succeeded++
	rc.observe(latency)
}

// RecordFailure records one failed attempt. timeout marks failures
// caused by the evaluation deadline.
func (s *MetricsStore) RecordFailure(ruleID string, latency time.Duration, timeout bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc := s.counters(ruleID)
	rc.total++
	rc.failed++
	if timeout {
		rc.timeouts++
	}
	rc.observe(latency)
}

// RecordRetry records one retry attempt.
func (s *MetricsStore) RecordRetry(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(ruleID).retries++
}

// RecordRejection records a call rejected by an open circuit.
func (s *MetricsStore) RecordRejection(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(ruleID).rejected++
}

func (rc *ruleCounters) observe(latency time.Duration) {
	if rc.minLatency == 0 || latency < rc.minLatency {
		rc.minLatency = latency
	}
	if latency > rc.maxLatency {
		rc.maxLatency = latency
	}
	rc.totalLatency += latency
}

// Snapshot returns computed metrics for every rule.
func (s *MetricsStore) Snapshot() map[string]Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Metrics, len(s.rules))
	for id, rc := range s.rules {
		m := Metrics{
			Total:      rc.total,
			Succeeded:  rc.succeeded,
			Failed:     rc.failed,
			Timeouts:   rc.timeouts,
			Retries:    rc.retries,
			Rejected:   rc.rejected,
			MinLatency: rc.minLatency,
			MaxLatency: rc.maxLatency,
		}
		if rc.total > 0 {
			m.AverageLatency = rc.totalLatency / time.Duration(rc.total)
		}
		out[id] = m
	}
	return out
}

// Reset clears all counters.
func (s *MetricsStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]*ruleCounters)
}
