package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// UsageCounterRepository defines the persistence interface for usage counters
type UsageCounterRepository interface {
	// GetOrCreate returns the tenant's counter, creating a zeroed one if
	// none exists. Concurrent callers for the same tenant must converge
	// on a single row.
	GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*UsageCounter, error)
	FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*UsageCounter, error)
	Update(ctx context.Context, counter *UsageCounter) error
}

// PlanLimitRepository defines the persistence interface for plan limits
type PlanLimitRepository interface {
	FindByTier(ctx context.Context, tier identity.PlanTier) (*PlanLimit, error)
	FindAll(ctx context.Context) ([]*PlanLimit, error)
	Save(ctx context.Context, limit *PlanLimit) error
}

// StorageLedger answers authoritative storage-usage queries against the
// file subsystem
type StorageLedger interface {
	TotalFileBytes(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// EntityLedger answers authoritative record-count queries against the
// CRM entity tables
type EntityLedger interface {
	CountRecords(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// QuotaNotifier is the outbound hook fired when a tenant hits a hard
// quota. Delivery is best-effort; failures never fail the transition.
type QuotaNotifier interface {
	NotifyQuotaReached(ctx context.Context, tenant *identity.Tenant, dimension QuotaDimension, current, limit int64)
}
