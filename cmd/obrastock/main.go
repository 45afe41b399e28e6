package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/obrastock/obrastock/internal/app"
	"github.com/obrastock/obrastock/internal/budget"
	"github.com/obrastock/obrastock/internal/ledger"
	"github.com/obrastock/obrastock/internal/masterdata/fronts"
	"github.com/obrastock/obrastock/internal/masterdata/materials"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Reports fall back to uncached loads when Redis is unavailable.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("connect redis", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	budgetRepo := budget.NewRepository(dbpool)
	budgetService := budget.NewService(budgetRepo)
	budgetHandler := budget.NewHandler(logger, budgetService)

	requisitionRepo := requisition.NewRepository(dbpool)
	requisitionService := requisition.NewService(requisitionRepo, budgetService, auditLogger, requisition.ServiceConfig{
		BudgetHardBlock: cfg.BudgetHardBlock,
	})
	requisitionHandler := requisition.NewHandler(logger, requisitionService)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, requisitionRepo, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, procurementService, requisitionRepo, jobs.NewFeed(jobsClient), auditLogger, idempotencyStore, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, metrics)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, reports.NewCache(redisClient, cfg.ReportCacheTTL))
	reportsHandler := reports.NewHandler(logger, reportsService)

	materialsHandler := materials.NewHandler(logger, materials.NewService(materials.NewRepository(dbpool)))
	frontsHandler := fronts.NewHandler(logger, fronts.NewService(fronts.NewRepository(dbpool)))
	jobsHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RequisitionHandler: requisitionHandler,
		ProcurementHandler: procurementHandler,
		LedgerHandler:      ledgerHandler,
		BudgetHandler:      budgetHandler,
		ReportsHandler:     reportsHandler,
		MaterialsHandler:   materialsHandler,
		FrontsHandler:      frontsHandler,
		JobsHandler:        jobsHandler,
		Pool:               dbpool,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
