package resilience

import (
	"context"
	"errors"
	"time"

	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/source"
)

// RetryPolicy controls retry counts and backoff growth.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubled backoff.
	MaxBackoff time.Duration
}

// Backoff returns the delay before retry number attempt (zero-based).
// The delay doubles each retry and is capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Retryable reports whether a failed evaluation should be retried.
//
// Timeouts are retryable. Evaluation and source errors carry their own
// retryable flag. Circuit rejections and cancellations are not
// retryable, and neither is any error that does not identify itself as
// transient.
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}

	var coe *CircuitOpenError
	if errors.As(err, &coe) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var evalErr *rules.EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr.Retryable
	}

	return source.IsRetryable(err)
}
