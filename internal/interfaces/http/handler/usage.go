// Package handler contains the gin HTTP handlers for the CRM API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
	"github.com/pathsix/crm-backend/internal/interfaces/http/middleware"
)

// UsageHandler serves the account usage dashboard endpoints.
type UsageHandler struct {
	summaries *appbilling.UsageSummaryService
	enforcer  *appbilling.QuotaEnforcer
	logger    *zap.Logger
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(summaries *appbilling.UsageSummaryService, enforcer *appbilling.QuotaEnforcer, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		summaries: summaries,
		enforcer:  enforcer,
		logger:    logger,
	}
}

// GetSummary handles GET /api/v1/usage
func (h *UsageHandler) GetSummary(c *gin.Context) {
	tenantID, ok := middleware.TenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
		return
	}

	summary, err := h.summaries.GetUsageSummary(c.Request.Context(), tenantID)
	if err != nil {
		status, body := dto.FromError(err)
		logger.WithLogger(c.Request.Context(), h.logger).Error(
			"Failed to render usage summary", zap.Error(err))
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(summary))
}

// CheckUploadRequest is the body for upload admission checks
type CheckUploadRequest struct {
	SizeBytes int64 `json:"size_bytes" binding:"required,min=1"`
}

// CheckUpload handles POST /api/v1/usage/check-upload. The API layer
// calls it before accepting a file so oversized uploads are rejected
// up front instead of after the transfer.
func (h *UsageHandler) CheckUpload(c *gin.Context) {
	tenantID, ok := middleware.TenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "Tenant could not be resolved from the request"))
		return
	}

	var req CheckUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "size_bytes must be a positive integer"))
		return
	}

	result, err := h.enforcer.CheckUpload(c.Request.Context(), tenantID, req.SizeBytes)
	if err != nil {
		status, body := dto.FromError(err)
		c.JSON(status, body)
		return
	}

	if !result.Allowed {
		status, body := dto.FromCheckResult(result)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(billing.Allow()))
}
