package models

import (
	"time"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	AggregateModel
	Name         string                `gorm:"type:varchar(200);not null"`
	Subdomain    string                `gorm:"type:varchar(100);not null;uniqueIndex"`
	Status       identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Plan         identity.PlanTier     `gorm:"type:varchar(20);not null;default:'free'"`
	ContactEmail string                `gorm:"type:varchar(200)"`
	SuspendedAt  *time.Time
	CancelledAt  *time.Time
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		Name:         m.Name,
		Subdomain:    m.Subdomain,
		Status:       m.Status,
		Plan:         m.Plan,
		ContactEmail: m.ContactEmail,
		SuspendedAt:  m.SuspendedAt,
		CancelledAt:  m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Name = t.Name
	m.Subdomain = t.Subdomain
	m.Status = t.Status
	m.Plan = t.Plan
	m.ContactEmail = t.ContactEmail
	m.SuspendedAt = t.SuspendedAt
	m.CancelledAt = t.CancelledAt
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}
