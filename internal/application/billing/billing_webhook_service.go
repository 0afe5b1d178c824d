package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	identityapp "github.com/pathsix/crm-backend/internal/application/identity"
	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// BillingWebhookService translates payment-provider webhook events into
// tenant lifecycle transitions. Payment failure suspends, recovery
// reactivates, subscription deletion cancels, and subscription updates
// carry plan changes. Tenants are correlated through the `tenant_id`
// metadata key set on the Stripe subscription at checkout.
type BillingWebhookService struct {
	webhookSecret string
	lifecycle     *identityapp.TenantLifecycleService
	logger        *zap.Logger
}

// NewBillingWebhookService creates a new BillingWebhookService
func NewBillingWebhookService(webhookSecret string, lifecycle *identityapp.TenantLifecycleService, logger *zap.Logger) *BillingWebhookService {
	return &BillingWebhookService{
		webhookSecret: webhookSecret,
		lifecycle:     lifecycle,
		logger:        logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and dispatches one webhook event
func (s *BillingWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing billing webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	switch event.Type {
	case "invoice.payment_failed":
		err = s.handleInvoiceEvent(ctx, event, s.lifecycle.MarkSuspended)
	case "invoice.paid":
		err = s.handleInvoiceEvent(ctx, event, s.lifecycle.MarkActive)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChanged(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

func (s *BillingWebhookService) handleInvoiceEvent(ctx context.Context, event stripe.Event, apply func(context.Context, uuid.UUID) error) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	tenantID, ok := tenantIDFromMetadata(invoice.Metadata)
	if !ok {
		s.logger.Warn("Invoice has no tenant_id metadata, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	return apply(ctx, tenantID)
}

func (s *BillingWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	tenantID, ok := tenantIDFromMetadata(subscription.Metadata)
	if !ok {
		s.logger.Warn("Subscription has no tenant_id metadata, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	return s.lifecycle.MarkCancelled(ctx, tenantID)
}

func (s *BillingWebhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	tenantID, ok := tenantIDFromMetadata(subscription.Metadata)
	if !ok {
		s.logger.Warn("Subscription has no tenant_id metadata, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	tier := identity.PlanTier(subscription.Metadata["plan_tier"])
	if !tier.IsValid() {
		s.logger.Warn("Subscription has no recognizable plan_tier metadata, skipping",
			zap.String("subscription_id", subscription.ID),
			zap.String("plan_tier", subscription.Metadata["plan_tier"]))
		return nil
	}

	return s.lifecycle.ChangePlan(ctx, tenantID, tier)
}

func tenantIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata["tenant_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
