package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
)

// RequireQuota gates a route on an admission check for the given
// dimension. Denials are rendered as structured errors; enforcer
// faults surface as 500s so callers retry.
func RequireQuota(enforcer *appbilling.QuotaEnforcer, operation appbilling.OperationKind, dimension billing.QuotaDimension, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tenantID, ok := TenantIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
			return
		}

		result, err := enforcer.Check(c.Request.Context(), tenantID, operation, dimension)
		if err != nil {
			status, body := dto.FromError(err)
			logger.WithLogger(c.Request.Context(), log).Error("Quota check failed",
				zap.String("dimension", string(dimension)),
				zap.Error(err))
			c.AbortWithStatusJSON(status, body)
			return
		}

		if !result.Allowed {
			status, body := dto.FromCheckResult(result)
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Next()
	}
}

// TrackAPICall records one api_call usage event per completed request.
// Recording is non-blocking; the aggregator drops events when
// saturated rather than delaying responses.
func TrackAPICall(aggregator *appbilling.UsageAggregator, skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}
		if _, ok := skip[c.FullPath()]; ok {
			return
		}
		tenantID, ok := TenantIDFromContext(c)
		if !ok {
			return
		}
		aggregator.Record(tenantID, billing.UsageKindAPICall)
	}
}

// RequirePlan restricts a route to the given plan tiers. Lower tiers
// get a 403 naming the plans that unlock the route.
func RequirePlan(repo identity.TenantRepository, tiers ...identity.PlanTier) gin.HandlerFunc {
	allowed := make(map[identity.PlanTier]struct{}, len(tiers))
	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		allowed[t] = struct{}{}
		names = append(names, t.String())
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tenantID, ok := TenantIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
			return
		}

		tenant, err := repo.FindByID(c.Request.Context(), tenantID)
		if err != nil {
			status, body := dto.FromError(err)
			c.AbortWithStatusJSON(status, body)
			return
		}

		if _, ok := allowed[tenant.Plan]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithUpgrade("PLAN_UPGRADE_REQUIRED",
					"This endpoint requires one of the following plans: "+strings.Join(names, ", "),
					dto.UpgradeURL))
			return
		}

		c.Next()
	}
}

// RequireFeature gates a route on a plan feature flag. The tenant's
// plan is loaded through the repository, then checked against the
// registry's feature table.
func RequireFeature(registry *appbilling.PlanLimitRegistry, repo identity.TenantRepository, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tenantID, ok := TenantIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
			return
		}

		tenant, err := repo.FindByID(c.Request.Context(), tenantID)
		if err != nil {
			status, body := dto.FromError(err)
			c.AbortWithStatusJSON(status, body)
			return
		}

		if !registry.FeatureEnabled(c.Request.Context(), tenant.Plan, feature) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithUpgrade("FEATURE_NOT_AVAILABLE",
					"This feature is not included in the current plan", dto.UpgradeURL))
			return
		}

		c.Next()
	}
}
