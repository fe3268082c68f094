package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/stockwatch/internal/alerts"
	"github.com/odyssey-erp/stockwatch/internal/app"
	"github.com/odyssey-erp/stockwatch/internal/inventory"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/companies"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/products"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/suppliers"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/warehouses"
	"github.com/odyssey-erp/stockwatch/internal/observability"
	"github.com/odyssey-erp/stockwatch/internal/platform/cache"
	"github.com/odyssey-erp/stockwatch/internal/platform/db"
	"github.com/odyssey-erp/stockwatch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.PGAutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	alertsRedis := redisClient
	if err != nil {
		logger.Warn("redis unavailable, alerts served uncached", slog.Any("error", err))
		alertsRedis = nil
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	if err := metrics.RegisterPool(dbpool); err != nil {
		logger.Warn("register pool metrics", slog.Any("error", err))
	}
	if err := alerts.SetupMetrics(metrics.Registerer()); err != nil {
		logger.Error("register alert metrics", slog.Any("error", err))
		os.Exit(1)
	}

	alertsCache := alerts.NewCache(alertsRedis, cfg.AlertsCacheTTL)
	alertsService := alerts.NewService(alerts.NewRepository(dbpool), alertsCache, alerts.Options{
		WindowDays:             cfg.AlertsWindowDays,
		IncludeUnknownVelocity: !cfg.AlertsSuppressZeroVelocity,
		CacheTTL:               cfg.AlertsCacheTTL,
	}, logger)

	companiesService := companies.NewService(companies.NewRepository(dbpool))
	warehousesService := warehouses.NewService(warehouses.NewRepository(dbpool))
	suppliersService := suppliers.NewService(suppliers.NewRepository(dbpool))
	productsService := products.NewService(products.NewRepository(dbpool), alertsService, logger)
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), alertsService, inventory.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	}, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Health: func(r *http.Request) error {
			return dbpool.Ping(r.Context())
		},
		CompaniesHandler:  companies.NewHandler(logger, companiesService),
		WarehousesHandler: warehouses.NewHandler(logger, warehousesService),
		SuppliersHandler:  suppliers.NewHandler(logger, suppliersService),
		ProductsHandler:   products.NewHandler(logger, productsService),
		InventoryHandler:  inventory.NewHandler(logger, inventoryService, warehouses.WarehouseIDParam),
		AlertsHandler:     alerts.NewHandler(logger, alertsService, companies.CompanyIDParam),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
