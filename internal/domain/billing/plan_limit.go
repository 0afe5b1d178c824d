package billing

import (
	"time"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// Unlimited is the sentinel limit value meaning the dimension is never exceeded
const Unlimited int64 = -1

// Feature flag names attached to plan tiers
const (
	FeatureAdvancedReporting = "advanced_reporting"
	FeatureAPIAccess         = "api_access"
	FeaturePrioritySupport   = "priority_support"
)

// PlanLimit holds the quota ceilings for one subscription tier
type PlanLimit struct {
	shared.BaseEntity
	PlanTier          identity.PlanTier `gorm:"type:varchar(20);not null;uniqueIndex"`
	MaxUsers          int64             `gorm:"not null"`
	MaxStorageBytes   int64             `gorm:"not null"`
	MaxDBRecords      int64             `gorm:"not null"`
	MaxAPICallsPerDay int64             `gorm:"not null"`
	MaxEmailsPerMonth int64             `gorm:"not null"`
	Features          map[string]bool   `gorm:"serializer:json;type:text"`
}

// TableName returns the table name for GORM
func (PlanLimit) TableName() string {
	return "plan_limits"
}

// NewPlanLimit creates plan limits for a tier
func NewPlanLimit(tier identity.PlanTier, maxUsers, maxStorageBytes, maxDBRecords, maxAPICallsPerDay, maxEmailsPerMonth int64, features map[string]bool) (*PlanLimit, error) {
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLAN", "Unknown plan tier")
	}
	for _, v := range []int64{maxUsers, maxStorageBytes, maxDBRecords, maxAPICallsPerDay, maxEmailsPerMonth} {
		if v < Unlimited {
			return nil, shared.NewDomainError("INVALID_LIMIT", "Limits must be non-negative or the unlimited sentinel")
		}
	}
	if features == nil {
		features = map[string]bool{}
	}

	return &PlanLimit{
		BaseEntity:        shared.NewBaseEntity(),
		PlanTier:          tier,
		MaxUsers:          maxUsers,
		MaxStorageBytes:   maxStorageBytes,
		MaxDBRecords:      maxDBRecords,
		MaxAPICallsPerDay: maxAPICallsPerDay,
		MaxEmailsPerMonth: maxEmailsPerMonth,
		Features:          features,
	}, nil
}

// HasFeature returns true if the named feature is enabled for the tier
func (p *PlanLimit) HasFeature(name string) bool {
	return p.Features[name]
}

// IsUnlimited returns true if the given limit value is the unlimited sentinel
func IsUnlimited(limit int64) bool {
	return limit == Unlimited
}

const gib = int64(1) << 30

// DefaultPlanLimits returns the built-in limit table, keyed by tier.
// It is the fallback when the plan_limits store has no row for a tier,
// so quota checks never fail on missing configuration.
func DefaultPlanLimits() map[identity.PlanTier]*PlanLimit {
	now := time.Now()
	mk := func(tier identity.PlanTier, users, storage, records, apiCalls, emails int64, features ...string) *PlanLimit {
		fm := map[string]bool{}
		for _, f := range features {
			fm[f] = true
		}
		return &PlanLimit{
			BaseEntity: shared.BaseEntity{
				CreatedAt: now,
				UpdatedAt: now,
			},
			PlanTier:          tier,
			MaxUsers:          users,
			MaxStorageBytes:   storage,
			MaxDBRecords:      records,
			MaxAPICallsPerDay: apiCalls,
			MaxEmailsPerMonth: emails,
			Features:          fm,
		}
	}

	return map[identity.PlanTier]*PlanLimit{
		identity.PlanTierFree:    mk(identity.PlanTierFree, 1, 0, 100, 500, 10),
		identity.PlanTierStarter: mk(identity.PlanTierStarter, 3, 2*gib, 5000, 5000, 100),
		identity.PlanTierBusiness: mk(identity.PlanTierBusiness, 10, 25*gib, 50000, 25000, 1000,
			FeatureAdvancedReporting),
		identity.PlanTierEnterprise: mk(identity.PlanTierEnterprise, Unlimited, 250*gib, 500000, 100000, 5000,
			FeatureAdvancedReporting, FeatureAPIAccess, FeaturePrioritySupport),
	}
}
