package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence/models"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
)

type quotaTestEnv struct {
	tenantRepo  identity.TenantRepository
	counterRepo billing.UsageCounterRepository
	registry    *appbilling.PlanLimitRegistry
	enforcer    *appbilling.QuotaEnforcer
	aggregator  *appbilling.UsageAggregator
}

func setupQuotaEnv(t *testing.T) *quotaTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.TenantModel{},
		&models.UsageCounterModel{},
		&models.PlanLimitModel{},
	))

	tenantRepo := persistence.NewGormTenantRepository(db)
	counterRepo := persistence.NewGormUsageCounterRepository(db)
	limitRepo := persistence.NewGormPlanLimitRepository(db)

	log := zap.NewNop()
	registry := appbilling.NewPlanLimitRegistry(limitRepo, log, appbilling.PlanLimitRegistryConfig{})
	aggregator := appbilling.NewUsageAggregator(counterRepo, log, nil, appbilling.UsageAggregatorConfig{})
	enforcer := appbilling.NewQuotaEnforcer(tenantRepo, counterRepo, registry, aggregator, nil, log, nil)

	return &quotaTestEnv{
		tenantRepo:  tenantRepo,
		counterRepo: counterRepo,
		registry:    registry,
		enforcer:    enforcer,
		aggregator:  aggregator,
	}
}

func (env *quotaTestEnv) createTenant(t *testing.T, subdomain string, plan identity.PlanTier) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant("Test Corp", subdomain)
	require.NoError(t, err)
	tenant.Plan = plan
	require.NoError(t, env.tenantRepo.Save(context.Background(), tenant))
	return tenant
}

func injectTenant(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(TenantIDKey, id)
		c.Next()
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestRequireQuota(t *testing.T) {
	t.Run("allows tenant under limit", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "under-limit", identity.PlanTierFree)

		engine := gin.New()
		engine.POST("/records", injectTenant(tenant.ID),
			RequireQuota(env.enforcer, appbilling.OperationWrite, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodPost, "/records")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denies with 429 when quota exhausted", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "over-limit", identity.PlanTierFree)

		ctx := context.Background()
		counter, err := env.counterRepo.GetOrCreate(ctx, tenant.ID)
		require.NoError(t, err)
		counter.SetDBRecordCount(100)
		require.NoError(t, env.counterRepo.Update(ctx, counter))

		engine := gin.New()
		engine.POST("/records", injectTenant(tenant.ID),
			RequireQuota(env.enforcer, appbilling.OperationWrite, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodPost, "/records")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, billing.ReasonQuotaExceeded, resp.Error.Code)
		assert.Equal(t, dto.UpgradeURL, resp.Error.UpgradeURL)

		// Hard quota hit flips the tenant read-only
		reloaded, err := env.tenantRepo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.TenantStatusReadOnly, reloaded.Status)
	})

	t.Run("denies writes for read-only tenant", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant, err := identity.NewTenant("Test Corp", "read-only")
		require.NoError(t, err)
		require.NoError(t, tenant.MarkReadOnly())
		require.NoError(t, env.tenantRepo.Save(context.Background(), tenant))

		engine := gin.New()
		engine.POST("/records", injectTenant(tenant.ID),
			RequireQuota(env.enforcer, appbilling.OperationWrite, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodPost, "/records")
		assert.Equal(t, http.StatusForbidden, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, billing.ReasonAccountReadOnly, resp.Error.Code)
	})

	t.Run("denies everything for suspended tenant", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant, err := identity.NewTenant("Test Corp", "suspended")
		require.NoError(t, err)
		require.NoError(t, tenant.Suspend())
		require.NoError(t, env.tenantRepo.Save(context.Background(), tenant))

		engine := gin.New()
		engine.GET("/records", injectTenant(tenant.ID),
			RequireQuota(env.enforcer, appbilling.OperationRead, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodGet, "/records")
		assert.Equal(t, http.StatusForbidden, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, billing.ReasonAccountSuspended, resp.Error.Code)
		assert.Equal(t, dto.BillingUpdateURL, resp.Error.UpgradeURL)
	})

	t.Run("returns 400 without resolved tenant", func(t *testing.T) {
		env := setupQuotaEnv(t)

		engine := gin.New()
		engine.POST("/records",
			RequireQuota(env.enforcer, appbilling.OperationWrite, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodPost, "/records")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("OPTIONS bypasses the check", func(t *testing.T) {
		env := setupQuotaEnv(t)

		engine := gin.New()
		engine.OPTIONS("/records",
			RequireQuota(env.enforcer, appbilling.OperationWrite, billing.DimensionRecords, nil),
			okHandler)

		w := doRequest(engine, http.MethodOptions, "/records")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTrackAPICall(t *testing.T) {
	t.Run("records one event per request", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenantID := uuid.New()

		engine := gin.New()
		engine.GET("/clients", injectTenant(tenantID), TrackAPICall(env.aggregator, nil), okHandler)

		doRequest(engine, http.MethodGet, "/clients")
		doRequest(engine, http.MethodGet, "/clients")

		assert.Equal(t, int64(2), env.aggregator.PendingAPICalls(tenantID))
	})

	t.Run("skips configured paths", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenantID := uuid.New()

		engine := gin.New()
		track := TrackAPICall(env.aggregator, []string{"/health"})
		engine.GET("/health", injectTenant(tenantID), track, okHandler)
		engine.GET("/clients", injectTenant(tenantID), track, okHandler)

		doRequest(engine, http.MethodGet, "/health")
		doRequest(engine, http.MethodGet, "/clients")

		assert.Equal(t, int64(1), env.aggregator.PendingAPICalls(tenantID))
	})

	t.Run("ignores requests without tenant", func(t *testing.T) {
		env := setupQuotaEnv(t)

		engine := gin.New()
		engine.GET("/clients", TrackAPICall(env.aggregator, nil), okHandler)

		w := doRequest(engine, http.MethodGet, "/clients")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, env.aggregator.QueueDepth())
	})
}

func TestRequirePlan(t *testing.T) {
	t.Run("blocks lower tiers", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "free-tier", identity.PlanTierFree)

		engine := gin.New()
		engine.GET("/exports", injectTenant(tenant.ID),
			RequirePlan(env.tenantRepo, identity.PlanTierBusiness, identity.PlanTierEnterprise),
			okHandler)

		w := doRequest(engine, http.MethodGet, "/exports")
		assert.Equal(t, http.StatusForbidden, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, "PLAN_UPGRADE_REQUIRED", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "business")
		assert.Equal(t, dto.UpgradeURL, resp.Error.UpgradeURL)
	})

	t.Run("admits listed tiers", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "biz-tier", identity.PlanTierBusiness)

		engine := gin.New()
		engine.GET("/exports", injectTenant(tenant.ID),
			RequirePlan(env.tenantRepo, identity.PlanTierBusiness, identity.PlanTierEnterprise),
			okHandler)

		w := doRequest(engine, http.MethodGet, "/exports")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireFeature(t *testing.T) {
	t.Run("denies plans without the feature", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "no-reporting", identity.PlanTierFree)

		engine := gin.New()
		engine.GET("/reports", injectTenant(tenant.ID),
			RequireFeature(env.registry, env.tenantRepo, billing.FeatureAdvancedReporting),
			okHandler)

		w := doRequest(engine, http.MethodGet, "/reports")
		assert.Equal(t, http.StatusForbidden, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, "FEATURE_NOT_AVAILABLE", resp.Error.Code)
	})

	t.Run("admits plans with the feature", func(t *testing.T) {
		env := setupQuotaEnv(t)
		tenant := env.createTenant(t, "with-reporting", identity.PlanTierEnterprise)

		engine := gin.New()
		engine.GET("/reports", injectTenant(tenant.ID),
			RequireFeature(env.registry, env.tenantRepo, billing.FeatureAdvancedReporting),
			okHandler)

		w := doRequest(engine, http.MethodGet, "/reports")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
