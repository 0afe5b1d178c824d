package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	appidentity "github.com/pathsix/crm-backend/internal/application/identity"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
	"github.com/pathsix/crm-backend/internal/interfaces/http/middleware"
)

// TenantHandler exposes the admin surface for tenant provisioning,
// lifecycle transitions and usage reconciliation. These routes are not
// tenant-scoped; they address tenants by ID.
type TenantHandler struct {
	tenants   *appidentity.TenantService
	lifecycle *appidentity.TenantLifecycleService
	recompute *appbilling.RecomputeService
	logger    *zap.Logger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(
	tenants *appidentity.TenantService,
	lifecycle *appidentity.TenantLifecycleService,
	recompute *appbilling.RecomputeService,
	logger *zap.Logger,
) *TenantHandler {
	return &TenantHandler{
		tenants:   tenants,
		lifecycle: lifecycle,
		recompute: recompute,
		logger:    logger,
	}
}

// Create handles POST /admin/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var input appidentity.CreateTenantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenant, err := h.tenants.Create(c.Request.Context(), input)
	if err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSuccessResponse(tenant))
}

// Get handles GET /admin/v1/tenants/:id
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	tenant, err := h.tenants.GetByID(c.Request.Context(), id)
	if err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(tenant))
}

// List handles GET /admin/v1/tenants?status=active
func (h *TenantHandler) List(c *gin.Context) {
	status := identity.TenantStatus(c.DefaultQuery("status", identity.TenantStatusActive.String()))

	tenants, err := h.tenants.ListByStatus(c.Request.Context(), status)
	if err != nil {
		httpStatus, resp := dto.FromError(err)
		c.JSON(httpStatus, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(tenants))
}

// ChangePlanRequest is the body for PUT /admin/v1/tenants/:id/plan
type ChangePlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// ChangePlan handles PUT /admin/v1/tenants/:id/plan
func (h *TenantHandler) ChangePlan(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
		return
	}

	tier := identity.PlanTier(req.Plan)
	if !tier.IsValid() {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "Unknown plan tier"))
		return
	}

	if err := h.lifecycle.ChangePlan(c.Request.Context(), id, tier); err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	h.respondWithTenant(c, id)
}

// Suspend handles POST /admin/v1/tenants/:id/suspend
func (h *TenantHandler) Suspend(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycle.MarkSuspended)
}

// Cancel handles POST /admin/v1/tenants/:id/cancel
func (h *TenantHandler) Cancel(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycle.MarkCancelled)
}

// Reactivate handles POST /admin/v1/tenants/:id/reactivate
func (h *TenantHandler) Reactivate(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycle.MarkActive)
}

// RecomputeStorage handles POST /admin/v1/tenants/:id/recompute/storage.
// It rebuilds the storage counter from the file ledger and reconciles
// the tenant status against plan limits.
func (h *TenantHandler) RecomputeStorage(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	counter, err := h.recompute.RecomputeStorage(c.Request.Context(), id)
	if err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"tenant_id":     id,
		"storage_bytes": counter.StorageBytes,
	}))
}

// RecomputeRecords handles POST /admin/v1/tenants/:id/recompute/records
func (h *TenantHandler) RecomputeRecords(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	counter, err := h.recompute.RecomputeRecords(c.Request.Context(), id)
	if err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"tenant_id":       id,
		"db_record_count": counter.DBRecordCount,
	}))
}

func (h *TenantHandler) applyLifecycle(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}

	h.respondWithTenant(c, id)
}

func (h *TenantHandler) respondWithTenant(c *gin.Context, id uuid.UUID) {
	tenant, err := h.tenants.GetByID(c.Request.Context(), id)
	if err != nil {
		status, resp := dto.FromError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(tenant))
}

func (h *TenantHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "Invalid tenant ID"))
		return uuid.Nil, false
	}
	return id, true
}
