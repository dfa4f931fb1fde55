package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/history"
	"quorum-hq/arbiter/pkg/resilience"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/manager"
)

// Coordinator dispatches evaluations over selected rule sets.
type Coordinator struct {
	manager    *manager.Manager
	controller *resilience.Controller
	history    history.Store
	maxConc    int
	stopOnErr  bool
	logger     *slog.Logger
}

// Result collects the outcome of one dispatch. Every selected rule
// appears in exactly one of Results or Errors.
type Result struct {
	// Results maps rule ID to its evaluation output.
	Results map[string]*rules.Output `json:"results"`

	// Errors maps rule ID to its evaluation failure.
	Errors map[string]error `json:"errors"`

	// Started is when the dispatch began.
	Started time.Time `json:"started"`

	// Duration is the total wall time of the dispatch.
	Duration time.Duration `json:"duration"`
}

// Succeeded returns the number of successful evaluations.
func (r *Result) Succeeded() int { return len(r.Results) }

// Failed returns the number of failed evaluations.
func (r *Result) Failed() int { return len(r.Errors) }

// New creates a coordinator. history may be nil to skip auditing;
// logger may be nil.
func New(cfg config.ExecutionConfig, mgr *manager.Manager, ctrl *resilience.Controller, hist history.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	maxConc := cfg.MaxConcurrency
	if maxConc < 1 {
		maxConc = 1
	}
	return &Coordinator{
		manager:    mgr,
		controller: ctrl,
		history:    hist,
		maxConc:    maxConc,
		stopOnErr:  cfg.StopOnError,
		logger:     logger.With("component", "executor"),
	}
}

// ExecuteOne evaluates a single rule.
func (c *Coordinator) ExecuteOne(ctx context.Context, ruleID string, input rules.Input) (*rules.Output, error) {
	return c.runOne(ctx, ruleID, input)
}

// ExecuteMany evaluates every rule named by the selector. The returned
// Result always covers all selected rules; per-rule failures land in
// Result.Errors and do not abort the dispatch unless sequential mode
// is configured to stop on error.
func (c *Coordinator) ExecuteMany(ctx context.Context, sel Selector, input rules.Input) (*Result, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	ids, err := c.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Results: make(map[string]*rules.Output, len(ids)),
		Errors:  make(map[string]error),
		Started: time.Now(),
	}

	switch sel.Mode {
	case Parallel:
		c.runParallel(ctx, ids, input, res)
	case Batched:
		c.runBatched(ctx, ids, input, res)
	default:
		c.runSequential(ctx, ids, input, res)
	}

	res.Duration = time.Since(res.Started)
	c.logger.Info("dispatch completed",
		"mode", string(sel.Mode),
		"selected", len(ids),
		"succeeded", res.Succeeded(),
		"failed", res.Failed(),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// resolve expands a selector into the list of rule IDs to dispatch.
// Explicit rule IDs keep the caller's order; tag and catalog selection
// have no declared order and come back sorted.
func (c *Coordinator) resolve(ctx context.Context, sel Selector) ([]string, error) {
	switch {
	case len(sel.RuleIDs) > 0:
		return append([]string(nil), sel.RuleIDs...), nil
	case len(sel.Tags) > 0:
		return c.manager.IDsByTags(ctx, sel.Tags)
	default:
		return c.manager.AllIDs(ctx)
	}
}

func (c *Coordinator) runSequential(ctx context.Context, ids []string, input rules.Input, res *Result) {
	for _, id := range ids {
		out, err := c.runOne(ctx, id, input)
		if err != nil {
			res.Errors[id] = err
			if c.stopOnErr {
				return
			}
			continue
		}
		res.Results[id] = out
	}
}

func (c *Coordinator) runParallel(ctx context.Context, ids []string, input rules.Input, res *Result) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := c.runOne(ctx, id, input)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[id] = err
			} else {
				res.Results[id] = out
			}
		}(id)
	}
	wg.Wait()
}

// runBatched dispatches in windows of the configured concurrency. Each
// window completes before the next begins.
func (c *Coordinator) runBatched(ctx context.Context, ids []string, input rules.Input, res *Result) {
	for start := 0; start < len(ids); start += c.maxConc {
		end := start + c.maxConc
		if end > len(ids) {
			end = len(ids)
		}
		c.runParallel(ctx, ids[start:end], input, res)
	}
}

// runOne evaluates a single rule through the resilience controller and
// records the outcome.
func (c *Coordinator) runOne(ctx context.Context, ruleID string, input rules.Input) (*rules.Output, error) {
	start := time.Now()

	entry, err := c.manager.Entry(ctx, ruleID)
	if err != nil {
		c.record(ctx, ruleID, "error", time.Since(start), err)
		return nil, err
	}
	if !entry.Enabled {
		err := &rules.EvaluationError{RuleID: ruleID, Message: "rule is disabled"}
		c.record(ctx, ruleID, "error", time.Since(start), err)
		return nil, err
	}

	payload, err := c.manager.Payload(ctx, ruleID)
	if err != nil {
		c.record(ctx, ruleID, "error", time.Since(start), err)
		return nil, err
	}

	out, err := c.controller.Evaluate(ctx, ruleID, payload, input)
	duration := time.Since(start)
	if err != nil {
		c.record(ctx, ruleID, classify(err), duration, err)
		return nil, err
	}

	if out != nil {
		out.Duration = duration
	}
	c.record(ctx, ruleID, "success", duration, nil)
	return out, nil
}

// record appends to the execution history, tolerating a nil store.
func (c *Coordinator) record(ctx context.Context, ruleID, outcome string, duration time.Duration, evalErr error) {
	if c.history == nil {
		return
	}
	rec := history.NewRecord(ruleID, outcome, duration, evalErr)
	if err := c.history.Append(ctx, rec); err != nil {
		c.logger.Warn("failed to record execution", "rule_id", ruleID, "error", err)
	}
}

// classify maps an evaluation failure to a history outcome.
func classify(err error) string {
	var coe *resilience.CircuitOpenError
	switch {
	case errors.As(err, &coe):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
