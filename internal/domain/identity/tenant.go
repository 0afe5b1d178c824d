package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle status of a tenant account
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusReadOnly  TenantStatus = "read_only" // Over quota, existing data readable but writes blocked
	TenantStatusSuspended TenantStatus = "suspended" // Billing failure, all access blocked
	TenantStatusCancelled TenantStatus = "cancelled" // Subscription ended, all access blocked
)

// IsValid returns true if the status is a known value
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusReadOnly, TenantStatusSuspended, TenantStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s TenantStatus) String() string {
	return string(s)
}

// PlanTier represents the subscription plan of a tenant
type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierStarter    PlanTier = "starter"
	PlanTierBusiness   PlanTier = "business"
	PlanTierEnterprise PlanTier = "enterprise"
)

// IsValid returns true if the tier is a known value
func (p PlanTier) IsValid() bool {
	switch p {
	case PlanTierFree, PlanTierStarter, PlanTierBusiness, PlanTierEnterprise:
		return true
	}
	return false
}

// String returns the string representation of the tier
func (p PlanTier) String() string {
	return string(p)
}

// Tenant represents an organization account in the multi-tenant system.
// It is the aggregate root for account lifecycle and plan assignment.
type Tenant struct {
	shared.BaseAggregateRoot
	Name         string       `gorm:"type:varchar(200);not null"`
	Subdomain    string       `gorm:"type:varchar(100);not null;uniqueIndex"`
	Status       TenantStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Plan         PlanTier     `gorm:"type:varchar(20);not null;default:'free'"`
	ContactEmail string       `gorm:"type:varchar(200)"`
	SuspendedAt  *time.Time
	CancelledAt  *time.Time
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active tenant on the free plan
func NewTenant(name, subdomain string) (*Tenant, error) {
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if err := validateSubdomain(subdomain); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Subdomain:         strings.ToLower(strings.TrimSpace(subdomain)),
		Status:            TenantStatusActive,
		Plan:              PlanTierFree,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// ChangePlan moves the tenant to a different plan tier
func (t *Tenant) ChangePlan(plan PlanTier) error {
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_PLAN", "Unknown plan tier")
	}
	if t.Status == TenantStatusCancelled {
		return shared.NewDomainError("TENANT_CANCELLED", "Cannot change plan of a cancelled tenant")
	}
	if plan == t.Plan {
		return nil
	}

	oldPlan := t.Plan
	t.Plan = plan
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, oldPlan, plan))

	return nil
}

// MarkReadOnly places the tenant in read-only mode because its usage
// exceeds plan limits. Billing-driven statuses take precedence: a
// suspended or cancelled tenant never drops to read-only.
func (t *Tenant) MarkReadOnly() error {
	switch t.Status {
	case TenantStatusReadOnly:
		return nil
	case TenantStatusSuspended, TenantStatusCancelled:
		return shared.NewDomainError("BILLING_STATUS_PRECEDENCE", "Tenant status is controlled by billing")
	}

	t.transition(TenantStatusReadOnly)
	return nil
}

// RestoreFromReadOnly returns a read-only tenant to active once its
// usage is back within plan limits. It never overrides suspension or
// cancellation.
func (t *Tenant) RestoreFromReadOnly() error {
	switch t.Status {
	case TenantStatusActive:
		return nil
	case TenantStatusSuspended, TenantStatusCancelled:
		return shared.NewDomainError("BILLING_STATUS_PRECEDENCE", "Tenant status is controlled by billing")
	}

	t.transition(TenantStatusActive)
	return nil
}

// Suspend blocks all tenant access following a billing failure
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusCancelled {
		return shared.NewDomainError("TENANT_CANCELLED", "Cannot suspend a cancelled tenant")
	}
	if t.Status == TenantStatusSuspended {
		return nil
	}

	now := time.Now()
	t.SuspendedAt = &now
	t.transition(TenantStatusSuspended)
	return nil
}

// Cancel terminates the tenant's subscription
func (t *Tenant) Cancel() error {
	if t.Status == TenantStatusCancelled {
		return nil
	}

	now := time.Now()
	t.CancelledAt = &now
	t.transition(TenantStatusCancelled)
	return nil
}

// Reactivate restores a suspended or cancelled tenant after billing
// has been resolved
func (t *Tenant) Reactivate() error {
	if t.Status == TenantStatusActive {
		return nil
	}

	t.SuspendedAt = nil
	t.CancelledAt = nil
	t.transition(TenantStatusActive)
	return nil
}

func (t *Tenant) transition(to TenantStatus) {
	oldStatus := t.Status
	t.Status = to
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, to))
}

// IsActive returns true if the tenant is fully active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsReadOnly returns true if the tenant is in read-only mode
func (t *Tenant) IsReadOnly() bool {
	return t.Status == TenantStatusReadOnly
}

// CanRead returns true if the tenant may read existing data
func (t *Tenant) CanRead() bool {
	return t.Status == TenantStatusActive || t.Status == TenantStatusReadOnly
}

// CanWrite returns true if the tenant may create or modify data
func (t *Tenant) CanWrite() bool {
	return t.Status == TenantStatusActive
}

// GetTenantID returns the tenant's UUID
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

func validateSubdomain(subdomain string) error {
	if subdomain == "" {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot be empty")
	}
	if len(subdomain) > 100 {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot exceed 100 characters")
	}
	for _, r := range subdomain {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-') {
			return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain can only contain letters, numbers, and hyphens")
		}
	}
	return nil
}
