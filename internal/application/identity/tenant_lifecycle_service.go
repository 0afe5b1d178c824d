package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// TenantLifecycleService applies billing-driven lifecycle signals to
// the tenant status machine. Billing transitions always win over
// quota-driven ones; the domain enforces that rule, this service just
// loads, applies, and persists.
type TenantLifecycleService struct {
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewTenantLifecycleService creates a new TenantLifecycleService
func NewTenantLifecycleService(tenantRepo identity.TenantRepository, logger *zap.Logger) *TenantLifecycleService {
	return &TenantLifecycleService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// MarkSuspended suspends a tenant after a billing failure
func (s *TenantLifecycleService) MarkSuspended(ctx context.Context, tenantID uuid.UUID) error {
	return s.apply(ctx, tenantID, "suspend", func(t *identity.Tenant) error {
		return t.Suspend()
	})
}

// MarkCancelled cancels a tenant's subscription
func (s *TenantLifecycleService) MarkCancelled(ctx context.Context, tenantID uuid.UUID) error {
	return s.apply(ctx, tenantID, "cancel", func(t *identity.Tenant) error {
		return t.Cancel()
	})
}

// MarkActive reactivates a tenant after billing recovery
func (s *TenantLifecycleService) MarkActive(ctx context.Context, tenantID uuid.UUID) error {
	return s.apply(ctx, tenantID, "reactivate", func(t *identity.Tenant) error {
		return t.Reactivate()
	})
}

// ChangePlan moves a tenant to a new plan tier
func (s *TenantLifecycleService) ChangePlan(ctx context.Context, tenantID uuid.UUID, tier identity.PlanTier) error {
	return s.apply(ctx, tenantID, "change_plan", func(t *identity.Tenant) error {
		return t.ChangePlan(tier)
	})
}

func (s *TenantLifecycleService) apply(ctx context.Context, tenantID uuid.UUID, action string, fn func(*identity.Tenant) error) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return err
	}

	before := tenant.Status
	if err := fn(tenant); err != nil {
		return err
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		s.logger.Error("Failed to persist tenant lifecycle transition",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
			zap.Error(err))
		return err
	}

	s.logger.Info("Tenant lifecycle transition applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("action", action),
		zap.String("from", before.String()),
		zap.String("to", tenant.Status.String()))

	return nil
}
