package identity

import (
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// Event type constants for tenant events
const (
	EventTypeTenantCreated       = "tenant.created"
	EventTypeTenantPlanChanged   = "tenant.plan_changed"
	EventTypeTenantStatusChanged = "tenant.status_changed"
)

// TenantCreatedEvent is raised when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Name      string
	Subdomain string
	Plan      PlanTier
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, tenant.ID),
		Name:            tenant.Name,
		Subdomain:       tenant.Subdomain,
		Plan:            tenant.Plan,
	}
}

// TenantPlanChangedEvent is raised when a tenant changes plan tier
type TenantPlanChangedEvent struct {
	shared.BaseDomainEvent
	OldPlan PlanTier
	NewPlan PlanTier
}

// NewTenantPlanChangedEvent creates a new TenantPlanChangedEvent
func NewTenantPlanChangedEvent(tenant *Tenant, oldPlan, newPlan PlanTier) *TenantPlanChangedEvent {
	return &TenantPlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantPlanChanged, tenant.ID),
		OldPlan:         oldPlan,
		NewPlan:         newPlan,
	}
}

// TenantStatusChangedEvent is raised when a tenant's status changes
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus TenantStatus
	NewStatus TenantStatus
}

// NewTenantStatusChangedEvent creates a new TenantStatusChangedEvent
func NewTenantStatusChangedEvent(tenant *Tenant, oldStatus, newStatus TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantStatusChanged, tenant.ID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}
