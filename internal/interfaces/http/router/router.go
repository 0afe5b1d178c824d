package router

import (
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/config"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/interfaces/http/handler"
	"github.com/pathsix/crm-backend/internal/interfaces/http/middleware"
)

// Dependencies carries the wired services the router mounts
type Dependencies struct {
	Health   *handler.HealthHandler
	Usage    *handler.UsageHandler
	Tenants  *handler.TenantHandler
	Webhooks *handler.BillingWebhookHandler

	Enforcer   *appbilling.QuotaEnforcer
	Aggregator *appbilling.UsageAggregator
	TenantRepo identity.TenantRepository
}

// Setup builds the gin engine with the full middleware stack and
// mounts all routes. Middleware order:
//  1. RequestID, recovery, request logging, tracing
//  2. CORS
//  3. Tenant resolution (API routes only)
//  4. Quota admission and usage tracking (API routes only)
func Setup(cfg *config.Config, log *zap.Logger, deps Dependencies) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(otelgin.Middleware(cfg.App.Name))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
	}))

	engine.GET("/health", deps.Health.Health)

	// Billing provider callbacks carry their own signature check and
	// are not tenant-scoped.
	webhooks := engine.Group("/webhooks")
	webhooks.POST("/stripe", deps.Webhooks.Handle)

	// Admin surface addresses tenants by ID and bypasses quota
	// enforcement. Operator authentication sits in front of it at the
	// proxy layer.
	admin := engine.Group("/admin/v1")
	{
		admin.POST("/tenants", deps.Tenants.Create)
		admin.GET("/tenants", deps.Tenants.List)
		admin.GET("/tenants/:id", deps.Tenants.Get)
		admin.PUT("/tenants/:id/plan", deps.Tenants.ChangePlan)
		admin.POST("/tenants/:id/suspend", deps.Tenants.Suspend)
		admin.POST("/tenants/:id/cancel", deps.Tenants.Cancel)
		admin.POST("/tenants/:id/reactivate", deps.Tenants.Reactivate)
		admin.POST("/tenants/:id/recompute/storage", deps.Tenants.RecomputeStorage)
		admin.POST("/tenants/:id/recompute/records", deps.Tenants.RecomputeRecords)
	}

	// Tenant-scoped API. Every request spends one api_call from the
	// daily allowance; admission is checked before the handler and the
	// call is recorded after the response is written.
	api := engine.Group("/api/v1")
	api.Use(middleware.TenantResolver(middleware.TenantResolverConfig{
		Repo:       deps.TenantRepo,
		BaseDomain: cfg.App.BaseDomain,
		Logger:     log,
	}))
	api.Use(middleware.RequireQuota(deps.Enforcer, appbilling.OperationRead, billing.DimensionAPI, log))
	api.Use(middleware.TrackAPICall(deps.Aggregator, nil))
	{
		api.GET("/usage", deps.Usage.GetSummary)
		api.POST("/usage/check-upload", deps.Usage.CheckUpload)
	}

	return engine
}
