package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/stockwatch/internal/alerts"
	"github.com/odyssey-erp/stockwatch/internal/app"
	jobmetrics "github.com/odyssey-erp/stockwatch/internal/jobs"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/companies"
	"github.com/odyssey-erp/stockwatch/internal/platform/cache"
	"github.com/odyssey-erp/stockwatch/internal/platform/db"
	"github.com/odyssey-erp/stockwatch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	alertsRedis := redisClient
	if err != nil {
		logger.Warn("redis unavailable, alerts computed uncached", slog.Any("error", err))
		alertsRedis = nil
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	if err := alerts.SetupMetrics(nil); err != nil {
		logger.Warn("register alert metrics", slog.Any("error", err))
	}

	alertsService := alerts.NewService(alerts.NewRepository(pool), alerts.NewCache(alertsRedis, cfg.AlertsCacheTTL), alerts.Options{
		WindowDays:             cfg.AlertsWindowDays,
		IncludeUnknownVelocity: !cfg.AlertsSuppressZeroVelocity,
		CacheTTL:               cfg.AlertsCacheTTL,
	}, logger)
	companiesService := companies.NewService(companies.NewRepository(pool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	mailer, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailer.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	scanJob := jobs.NewLowStockScanJob(companiesService, alertsService, mailer, cfg.AlertsNotifyFrom, logger, jobmetrics.NewMetrics(nil))

	scanTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{})
	if err != nil {
		logger.Error("build low stock scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AlertsScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
