package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
)

// Context keys and headers used for tenant resolution
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantResolverConfig holds configuration for tenant resolution
type TenantResolverConfig struct {
	// Repo looks up tenants when resolving by subdomain
	Repo identity.TenantRepository
	// BaseDomain enables subdomain resolution when non-empty
	// (e.g. "pathsixcrm.com" resolves acme.pathsixcrm.com to "acme")
	BaseDomain string
	// SkipPaths bypass tenant resolution entirely
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// TenantResolver extracts the tenant from the X-Tenant-ID header or,
// when configured, the request's subdomain. Requests without a
// resolvable tenant are rejected.
func TenantResolver(cfg TenantResolverConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		if raw := c.GetHeader(TenantHeaderKey); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					dto.NewErrorResponse(dto.ErrCodeBadRequest, "Invalid tenant ID header"))
				return
			}
			bindTenant(c, tenantID)
			c.Next()
			return
		}

		if cfg.BaseDomain != "" && cfg.Repo != nil {
			if sub := subdomainFromHost(c.Request.Host, cfg.BaseDomain); sub != "" {
				tenant, err := cfg.Repo.FindBySubdomain(c.Request.Context(), sub)
				if err == nil {
					bindTenant(c, tenant.ID)
					c.Next()
					return
				}
				log.Debug("Subdomain did not resolve to a tenant",
					zap.String("subdomain", sub), zap.Error(err))
			}
		}

		c.AbortWithStatusJSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
	}
}

// bindTenant records the resolved tenant in the gin context for
// handlers and in the request context so every log line and SQL trace
// downstream carries the tenant ID
func bindTenant(c *gin.Context, tenantID uuid.UUID) {
	c.Set(TenantIDKey, tenantID)
	c.Request = c.Request.WithContext(
		logger.ContextWithTenantID(c.Request.Context(), tenantID.String()))
}

// TenantIDFromContext returns the resolved tenant ID, if any
func TenantIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(TenantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	tenantID, ok := value.(uuid.UUID)
	return tenantID, ok
}

// subdomainFromHost extracts the tenant subdomain from a request host
func subdomainFromHost(host, baseDomain string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	suffix := "." + strings.ToLower(baseDomain)
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}
