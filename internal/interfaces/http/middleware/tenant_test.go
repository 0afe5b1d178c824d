package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence/models"
)

func setupResolverRepo(t *testing.T) identity.TenantRepository {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TenantModel{}))

	return persistence.NewGormTenantRepository(db)
}

func resolverEngine(cfg TenantResolverConfig) *gin.Engine {
	engine := gin.New()
	engine.GET("/resource", TenantResolver(cfg), func(c *gin.Context) {
		id, ok := TenantIDFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no tenant in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": id.String()})
	})
	engine.GET("/health", TenantResolver(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestTenantResolver(t *testing.T) {
	t.Run("resolves from header", func(t *testing.T) {
		engine := resolverEngine(TenantResolverConfig{})
		tenantID := uuid.New()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), tenantID.String())
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		engine := resolverEngine(TenantResolverConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		req.Header.Set(TenantHeaderKey, "not-a-uuid")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("resolves from subdomain", func(t *testing.T) {
		repo := setupResolverRepo(t)
		tenant, err := identity.NewTenant("Acme", "acme")
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), tenant))

		engine := resolverEngine(TenantResolverConfig{
			Repo:       repo,
			BaseDomain: "pathsixcrm.com",
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		req.Host = "acme.pathsixcrm.com:8080"
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), tenant.ID.String())
	})

	t.Run("rejects unknown subdomain", func(t *testing.T) {
		repo := setupResolverRepo(t)

		engine := resolverEngine(TenantResolverConfig{
			Repo:       repo,
			BaseDomain: "pathsixcrm.com",
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		req.Host = "ghost.pathsixcrm.com"
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects nested subdomain", func(t *testing.T) {
		repo := setupResolverRepo(t)

		engine := resolverEngine(TenantResolverConfig{
			Repo:       repo,
			BaseDomain: "pathsixcrm.com",
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		req.Host = "a.b.pathsixcrm.com"
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("skip paths bypass resolution", func(t *testing.T) {
		engine := resolverEngine(TenantResolverConfig{SkipPaths: []string{"/health"}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects request with no tenant signal", func(t *testing.T) {
		engine := resolverEngine(TenantResolverConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubdomainFromHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"acme.pathsixcrm.com", "acme"},
		{"acme.pathsixcrm.com:443", "acme"},
		{"ACME.PathSixCRM.com", "acme"},
		{"pathsixcrm.com", ""},
		{"a.b.pathsixcrm.com", ""},
		{"acme.other.com", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, subdomainFromHost(tt.host, "pathsixcrm.com"), "host %q", tt.host)
	}
}

func TestTenantResolverCorrelationContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID := uuid.New()

	var seenTenant, seenRequest string
	engine := gin.New()
	engine.GET("/resource", RequestID(), TenantResolver(TenantResolverConfig{}), func(c *gin.Context) {
		seenTenant = logger.TenantIDFromContext(c.Request.Context())
		seenRequest = logger.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set(TenantHeaderKey, tenantID.String())
	req.Header.Set(RequestIDHeader, "req-abc")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantID.String(), seenTenant)
	assert.Equal(t, "req-abc", seenRequest)
}
