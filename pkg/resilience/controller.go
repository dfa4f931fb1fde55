package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/telemetry/metrics"
)

// Controller evaluates rules through the full resilience chain:
// circuit breaker check, timeout-bounded attempt, retry with
// exponential backoff.
type Controller struct {
	evaluator rules.Evaluator
	circuits  *CircuitStore
	metrics   *MetricsStore
	retry     RetryPolicy
	timeout   time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewController creates a controller around an evaluator. logger and
// collector may be nil.
func NewController(cfg config.ResilienceConfig, evaluator rules.Evaluator, logger *slog.Logger, collector *metrics.Collector) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "resilience")

	notify := func(ruleID string, to State) {
		logger.Info("circuit transition", "rule_id", ruleID, "to", string(to))
		collector.RecordCircuitTransition(ruleID, string(to))
	}

	return &Controller{
		evaluator: evaluator,
		circuits:  NewCircuitStore(cfg.FailureThreshold, cfg.Cooldown, notify),
		metrics:   NewMetricsStore(),
		retry: RetryPolicy{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		},
		timeout:   cfg.EvalTimeout,
		logger:    logger,
		collector: collector,
	}
}

// Evaluate runs one rule through the resilience chain. The circuit is
// checked before the evaluator is invoked, so an open circuit never
// reaches the evaluator. A half-open probe gets a single attempt with
// no retries.
func (c *Controller) Evaluate(ctx context.Context, ruleID string, payload []byte, input rules.Input) (*rules.Output, error) {
	breaker := c.circuits.Get(ruleID)

	probe, err := breaker.Allow(time.Now())
	if err != nil {
		c.metrics.RecordRejection(ruleID)
		c.collector.RecordCircuitRejection(ruleID)
		c.logger.Debug("evaluation rejected by circuit", "rule_id", ruleID)
		return nil, err
	}

	attempts := c.retry.MaxRetries + 1
	if probe || attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retry.Backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.metrics.RecordRetry(ruleID)
			c.collector.RecordRetry(ruleID)
		}

		start := time.Now()
		out, err := c.evalOnce(ctx, payload, input)
		latency := time.Since(start)

		if err == nil {
			breaker.OnSuccess(time.Now())
			c.metrics.RecordSuccess(ruleID, latency)
			c.collector.RecordEvaluation(ruleID, "success", latency)
			return out, nil
		}

		lastErr = err
		timedOut := errors.Is(err, context.DeadlineExceeded)
		breaker.OnFailure(time.Now())
		c.metrics.RecordFailure(ruleID, latency, timedOut)

		outcome := "error"
		if timedOut {
			outcome = "timeout"
		}
		c.collector.RecordEvaluation(ruleID, outcome, latency)

		if !c.retry.Retryable(err) {
			break
		}
	}

	c.logger.Warn("evaluation failed",
		"rule_id", ruleID,
		"error", lastErr,
	)
	return nil, lastErr
}

// evalOnce runs a single evaluator call under the evaluation timeout.
// The timeout holds even when the evaluator ignores its context.
func (c *Controller) evalOnce(ctx context.Context, payload []byte, input rules.Input) (*rules.Output, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type result struct {
		out *rules.Output
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := c.evaluator.Evaluate(ctx, payload, input)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CircuitSnapshot returns the state of every rule's breaker.
func (c *Controller) CircuitSnapshot() map[string]BreakerSnapshot {
	return c.circuits.Snapshot()
}

// MetricsSnapshot returns per-rule evaluation counters.
func (c *Controller) MetricsSnapshot() map[string]Metrics {
	return c.metrics.Snapshot()
}

// ResetCircuit forces a rule's breaker closed. Returns false when the
// rule has no breaker.
func (c *Controller) ResetCircuit(ruleID string) bool {
	return c.circuits.Reset(ruleID)
}

// ResetMetrics clears all per-rule counters.
func (c *Controller) ResetMetrics() {
	c.metrics.Reset()
}
