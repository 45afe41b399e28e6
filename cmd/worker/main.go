package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/obrastock/obrastock/internal/app"
	"github.com/obrastock/obrastock/internal/ledger"
	"github.com/obrastock/obrastock/internal/observability"
	"github.com/obrastock/obrastock/internal/platform/cache"
	"github.com/obrastock/obrastock/internal/platform/db"
	"github.com/obrastock/obrastock/internal/procurement"
	"github.com/obrastock/obrastock/internal/reports"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
	"github.com/obrastock/obrastock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	requisitionRepo := requisition.NewRepository(pool)
	procurementService := procurement.NewService(procurement.NewRepository(pool), requisitionRepo, auditLogger)
	// The worker repairs caches; it must not enqueue further recompute tasks
	// for its own writes, so the change feed stays nil here.
	ledgerService := ledger.NewService(ledger.NewRepository(pool), procurementService, requisitionRepo, nil, auditLogger, nil, logger)

	reportsService := reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.ReportCacheTTL))

	sweepTask, err := jobs.NewSweepTask(time.Now().UTC())
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecomputeRequisition, Handler: jobs.NewRecomputeHandler(ledgerService, reportsService, metrics, logger)},
			{Type: jobs.TaskReconcileSweep, Handler: jobs.NewSweepHandler(ledgerService, requisitionRepo.ListOpenIDs, reportsService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 1 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
