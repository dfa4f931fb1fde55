package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runFlags struct {
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rule evaluation service",
	Long: `Start the rule evaluation service.

The service loads the rule catalog, starts filesystem watching and the
refresh reconciler when configured, and serves the Prometheus metrics
endpoint until interrupted.

Examples:
  # Start with the default config
  arbiter run

  # Start with a custom config
  arbiter run --config /etc/arbiter/config.yaml

  # Validate config without starting
  arbiter run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runService(cmd *cobra.Command, args []string) error {
	if runFlags.dryRun {
		if _, err := buildApp(echoEvaluator); err != nil {
			return err
		}
		fmt.Println("configuration valid")
		return nil
	}

	a, err := buildApp(echoEvaluator)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaded, err := a.manager.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("initial rule load: %w", err)
	}
	a.logger.Info("service starting", "rules", loaded, "source", a.cfg.Source.Mode)

	if err := a.manager.StartWatching(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if a.cfg.Refresh.Enabled {
		if err := a.reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
	}

	var metricsSrv *http.Server
	if a.cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Telemetry.Metrics.Path, a.collector.Handler())
		metricsSrv = &http.Server{
			Addr:    a.cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			a.logger.Info("metrics endpoint listening",
				"address", metricsSrv.Addr,
				"path", a.cfg.Telemetry.Metrics.Path,
			)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	a.logger.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}
