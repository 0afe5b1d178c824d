package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// UsageCounterModel is the persistence model for the UsageCounter entity.
// The unique tenant index is what makes concurrent creation converge on
// a single row.
type UsageCounterModel struct {
	BaseModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	StorageBytes    int64     `gorm:"not null;default:0"`
	DBRecordCount   int64     `gorm:"not null;default:0"`
	APICallsToday   int64     `gorm:"not null;default:0"`
	EmailsThisMonth int64     `gorm:"not null;default:0"`
	APICallsResetAt time.Time `gorm:"not null"`
	EmailsResetAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageCounterModel) TableName() string {
	return "usage_counters"
}

// ToDomain converts the persistence model to a domain UsageCounter.
func (m *UsageCounterModel) ToDomain() *billing.UsageCounter {
	return &billing.UsageCounter{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		StorageBytes:    m.StorageBytes,
		DBRecordCount:   m.DBRecordCount,
		APICallsToday:   m.APICallsToday,
		EmailsThisMonth: m.EmailsThisMonth,
		APICallsResetAt: m.APICallsResetAt,
		EmailsResetAt:   m.EmailsResetAt,
	}
}

// FromDomain populates the persistence model from a domain UsageCounter.
func (m *UsageCounterModel) FromDomain(c *billing.UsageCounter) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TenantID = c.TenantID
	m.StorageBytes = c.StorageBytes
	m.DBRecordCount = c.DBRecordCount
	m.APICallsToday = c.APICallsToday
	m.EmailsThisMonth = c.EmailsThisMonth
	m.APICallsResetAt = c.APICallsResetAt
	m.EmailsResetAt = c.EmailsResetAt
}

// UsageCounterModelFromDomain creates a new persistence model from a domain UsageCounter.
func UsageCounterModelFromDomain(c *billing.UsageCounter) *UsageCounterModel {
	m := &UsageCounterModel{}
	m.FromDomain(c)
	return m
}

// PlanLimitModel is the persistence model for the PlanLimit entity.
type PlanLimitModel struct {
	BaseModel
	PlanTier          identity.PlanTier `gorm:"type:varchar(20);not null;uniqueIndex"`
	MaxUsers          int64             `gorm:"not null"`
	MaxStorageBytes   int64             `gorm:"not null"`
	MaxDBRecords      int64             `gorm:"not null"`
	MaxAPICallsPerDay int64             `gorm:"not null"`
	MaxEmailsPerMonth int64             `gorm:"not null"`
	Features          string            `gorm:"type:text"` // JSON object of feature flags
}

// TableName returns the table name for GORM
func (PlanLimitModel) TableName() string {
	return "plan_limits"
}

// ToDomain converts the persistence model to a domain PlanLimit.
func (m *PlanLimitModel) ToDomain() *billing.PlanLimit {
	features := map[string]bool{}
	if m.Features != "" {
		_ = json.Unmarshal([]byte(m.Features), &features)
	}
	return &billing.PlanLimit{
		BaseEntity:        m.BaseModel.ToDomain(),
		PlanTier:          m.PlanTier,
		MaxUsers:          m.MaxUsers,
		MaxStorageBytes:   m.MaxStorageBytes,
		MaxDBRecords:      m.MaxDBRecords,
		MaxAPICallsPerDay: m.MaxAPICallsPerDay,
		MaxEmailsPerMonth: m.MaxEmailsPerMonth,
		Features:          features,
	}
}

// FromDomain populates the persistence model from a domain PlanLimit.
func (m *PlanLimitModel) FromDomain(p *billing.PlanLimit) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.PlanTier = p.PlanTier
	m.MaxUsers = p.MaxUsers
	m.MaxStorageBytes = p.MaxStorageBytes
	m.MaxDBRecords = p.MaxDBRecords
	m.MaxAPICallsPerDay = p.MaxAPICallsPerDay
	m.MaxEmailsPerMonth = p.MaxEmailsPerMonth
	if raw, err := json.Marshal(p.Features); err == nil {
		m.Features = string(raw)
	} else {
		m.Features = "{}"
	}
}

// PlanLimitModelFromDomain creates a new persistence model from a domain PlanLimit.
func PlanLimitModelFromDomain(p *billing.PlanLimit) *PlanLimitModel {
	m := &PlanLimitModel{}
	m.FromDomain(p)
	return m
}
