package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	appidentity "github.com/pathsix/crm-backend/internal/application/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/cache"
	"github.com/pathsix/crm-backend/internal/infrastructure/config"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/infrastructure/notification"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence"
	"github.com/pathsix/crm-backend/internal/infrastructure/telemetry"
	"github.com/pathsix/crm-backend/internal/interfaces/http/handler"
	"github.com/pathsix/crm-backend/internal/interfaces/http/middleware"
	"github.com/pathsix/crm-backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Telemetry
	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	quotaMetrics, err := telemetry.NewQuotaMetrics(meterProvider.Meter("crm.billing"))
	if err != nil {
		log.Fatal("Failed to create quota metrics", zap.Error(err))
	}

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Usage summary cache: redis when reachable, in-process otherwise
	var summaryCache appbilling.SummaryCache
	if redisClient, err := cache.NewRedisClient(&cfg.Redis); err != nil {
		log.Warn("Redis unavailable, using in-memory summary cache", zap.Error(err))
		summaryCache = cache.NewInMemorySummaryCache(cfg.Usage.SummaryCacheTTL)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		summaryCache = cache.NewRedisSummaryCache(redisClient, cfg.Usage.SummaryCacheTTL)
		log.Info("Redis connected successfully")
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	counterRepo := persistence.NewGormUsageCounterRepository(db.DB)
	planLimitRepo := persistence.NewGormPlanLimitRepository(db.DB)
	storageLedger := persistence.NewGormStorageLedger(db.DB)
	entityLedger := persistence.NewGormEntityLedger(db.DB)

	// Application services
	notifier := notification.NewLogQuotaNotifier(log)
	registry := appbilling.NewPlanLimitRegistry(planLimitRepo, log, appbilling.PlanLimitRegistryConfig{
		CacheTTL: cfg.Quota.PlanCacheTTL,
	})
	aggregator := appbilling.NewUsageAggregator(counterRepo, log, quotaMetrics, appbilling.UsageAggregatorConfig{
		FlushInterval:        cfg.Usage.FlushInterval,
		QueueCapacity:        cfg.Usage.QueueCapacity,
		ShutdownFlushTimeout: cfg.Usage.ShutdownFlushTimeout,
	})
	enforcer := appbilling.NewQuotaEnforcer(tenantRepo, counterRepo, registry, aggregator, notifier, log, quotaMetrics)
	summaries := appbilling.NewUsageSummaryService(counterRepo, tenantRepo, registry, summaryCache, log)
	recompute := appbilling.NewRecomputeService(counterRepo, tenantRepo, storageLedger, entityLedger, registry, notifier, log)
	tenants := appidentity.NewTenantService(tenantRepo, log)
	lifecycle := appidentity.NewTenantLifecycleService(tenantRepo, log)
	webhooks := appbilling.NewBillingWebhookService(cfg.Billing.StripeWebhookSecret, lifecycle, log)

	if err := aggregator.Start(ctx); err != nil {
		log.Fatal("Failed to start usage aggregator", zap.Error(err))
	}

	// HTTP layer
	middleware.SetupValidator()
	engine := router.Setup(cfg, log, router.Dependencies{
		Health:     handler.NewHealthHandler(db, version),
		Usage:      handler.NewUsageHandler(summaries, enforcer, log),
		Tenants:    handler.NewTenantHandler(tenants, lifecycle, recompute, log),
		Webhooks:   handler.NewBillingWebhookHandler(webhooks, log),
		Enforcer:   enforcer,
		Aggregator: aggregator,
		TenantRepo: tenantRepo,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting requests, then drain the
	// aggregator so buffered usage events reach the database.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := aggregator.Stop(shutdownCtx); err != nil {
		log.Error("Usage aggregator drain failed", zap.Error(err))
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
