package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/executor"
	"quorum-hq/arbiter/pkg/history"
	"quorum-hq/arbiter/pkg/resilience"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/manager"
	"quorum-hq/arbiter/pkg/rules/refresh"
	"quorum-hq/arbiter/pkg/telemetry/logging"
	"quorum-hq/arbiter/pkg/telemetry/metrics"
)

// app bundles the wired components shared by the run and exec commands.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	collector   *metrics.Collector
	manager     *manager.Manager
	controller  *resilience.Controller
	coordinator *executor.Coordinator
	history     history.Store
	reconciler  *refresh.Reconciler
}

// buildApp loads configuration and wires the full pipeline around the
// given evaluator.
func buildApp(evaluator rules.Evaluator) (*app, error) {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	mgr, err := manager.New(cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	hist, err := history.New(cfg.History, logger)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}

	ctrl := resilience.NewController(cfg.Resilience, evaluator, logger, collector)
	coord := executor.New(cfg.Execution, mgr, ctrl, hist, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		manager:     mgr,
		controller:  ctrl,
		coordinator: coord,
		history:     hist,
		reconciler:  refresh.New(cfg.Refresh, mgr, logger),
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	a.reconciler.Stop()
	if err := a.manager.Close(); err != nil {
		a.logger.Warn("failed to stop watcher", "error", err)
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("failed to close history store", "error", err)
	}
}

// echoEvaluator is the built-in placeholder evaluator. It decodes the
// rule payload as JSON and returns it alongside the input. Embedders
// supply a real Evaluator through the library API.
var echoEvaluator = rules.EvaluatorFunc(func(ctx context.Context, payload []byte, input rules.Input) (*rules.Output, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &rules.EvaluationError{
			Message: fmt.Sprintf("payload is not valid JSON: %v", err),
		}
	}
	return &rules.Output{
		Record: map[string]any{
			"rule":  doc,
			"input": map[string]any(input),
		},
	}, nil
})
