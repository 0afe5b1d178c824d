package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/infrastructure/logger"
	"github.com/pathsix/crm-backend/internal/interfaces/http/dto"
)

// Stripe documents 64KB as the largest webhook payload it sends
const maxWebhookBodyBytes = 64 * 1024

// BillingWebhookHandler receives billing provider webhooks.
type BillingWebhookHandler struct {
	webhooks *appbilling.BillingWebhookService
	logger   *zap.Logger
}

// NewBillingWebhookHandler creates a new BillingWebhookHandler
func NewBillingWebhookHandler(webhooks *appbilling.BillingWebhookService, logger *zap.Logger) *BillingWebhookHandler {
	return &BillingWebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

// Handle processes POST /webhooks/stripe. Signature failures return
// 400 so Stripe retries are not triggered by a misconfigured secret;
// processing failures return 500 so the event is redelivered.
func (h *BillingWebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "Failed to read webhook payload"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		status, body := dto.FromError(err)
		logger.WithLogger(c.Request.Context(), h.logger).Error(
			"Webhook processing failed", zap.Error(err))
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
