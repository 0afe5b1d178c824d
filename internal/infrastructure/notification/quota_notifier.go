// Package notification delivers outbound account notices.
package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// LogQuotaNotifier records quota-reached notices to the application log.
// It stands in for an email or webhook channel; delivery stays
// best-effort either way.
type LogQuotaNotifier struct {
	logger *zap.Logger
}

var _ billing.QuotaNotifier = (*LogQuotaNotifier)(nil)

// NewLogQuotaNotifier creates a new LogQuotaNotifier
func NewLogQuotaNotifier(logger *zap.Logger) *LogQuotaNotifier {
	return &LogQuotaNotifier{logger: logger.Named("quota_notifier")}
}

// NotifyQuotaReached logs that the tenant hit a hard quota
func (n *LogQuotaNotifier) NotifyQuotaReached(_ context.Context, tenant *identity.Tenant, dimension billing.QuotaDimension, current, limit int64) {
	n.logger.Warn("Tenant reached plan quota",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subdomain", tenant.Subdomain),
		zap.String("plan_tier", string(tenant.Plan)),
		zap.String("dimension", string(dimension)),
		zap.Int64("current_usage", current),
		zap.Int64("limit", limit),
		zap.String("contact_email", tenant.ContactEmail),
	)
}
