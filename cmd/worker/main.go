package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

func main() {
	if app.SkipStartup("worker") {
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	switch {
	case cfg.Store != app.StorePostgres:
		return fmt.Errorf("worker requires LEDGER_STORE=%s, got %q", app.StorePostgres, cfg.Store)
	case !cfg.RedisEnabled():
		return errors.New("worker requires REDIS_ADDR")
	}

	metrics := observability.NewMetrics()
	ledger, err := app.BuildLedger(ctx, app.LedgerParams{Config: cfg, Logger: logger, Metrics: metrics})
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	defer ledger.Close()

	worker, err := newWorker(cfg, logger, ledger, metrics)
	if err != nil {
		return err
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting worker",
			slog.String("integrity_cron", cfg.GLIntegrityCron),
			slog.String("warmup_cron", cfg.ReportWarmupCron),
			slog.Int("concurrency", cfg.WorkerConcurrency))
		if err := worker.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newWorker(cfg *app.Config, logger *slog.Logger, ledger *app.Ledger, metrics *observability.Metrics) (*jobs.Worker, error) {
	integrityTask, err := jobs.NewGLIntegrityTask(jobs.GLIntegrityPayload{})
	if err != nil {
		return nil, fmt.Errorf("build integrity task: %w", err)
	}
	warmupTask, err := jobs.NewReportWarmupTask("scheduled")
	if err != nil {
		return nil, fmt.Errorf("build warmup task: %w", err)
	}

	integrity := jobs.NewGLIntegrityJob(ledger.Journals, logger, metrics.Jobs())
	warmup := jobs.NewReportWarmupJob(ledger.Reports, logger, metrics.Jobs())
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrity.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.GLIntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ReportWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
}
