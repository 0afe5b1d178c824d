package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathsix/crm-backend/internal/domain/identity"
)

func TestNewPlanLimit(t *testing.T) {
	t.Run("creates limits successfully", func(t *testing.T) {
		limit, err := NewPlanLimit(identity.PlanTierStarter, 3, 2<<30, 5000, 5000, 100, nil)

		require.NoError(t, err)
		assert.Equal(t, identity.PlanTierStarter, limit.PlanTier)
		assert.Equal(t, int64(5000), limit.MaxDBRecords)
		assert.NotNil(t, limit.Features)
	})

	t.Run("accepts the unlimited sentinel", func(t *testing.T) {
		limit, err := NewPlanLimit(identity.PlanTierEnterprise, Unlimited, Unlimited, Unlimited, Unlimited, Unlimited, nil)

		require.NoError(t, err)
		assert.True(t, IsUnlimited(limit.MaxUsers))
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		limit, err := NewPlanLimit(identity.PlanTier("platinum"), 1, 1, 1, 1, 1, nil)

		assert.Error(t, err)
		assert.Nil(t, limit)
	})

	t.Run("rejects limits below sentinel", func(t *testing.T) {
		limit, err := NewPlanLimit(identity.PlanTierFree, -2, 1, 1, 1, 1, nil)

		assert.Error(t, err)
		assert.Nil(t, limit)
	})
}

func TestDefaultPlanLimits(t *testing.T) {
	defaults := DefaultPlanLimits()

	t.Run("covers every known tier", func(t *testing.T) {
		for _, tier := range []identity.PlanTier{
			identity.PlanTierFree, identity.PlanTierStarter,
			identity.PlanTierBusiness, identity.PlanTierEnterprise,
		} {
			assert.Contains(t, defaults, tier)
		}
	})

	t.Run("free tier has no storage allowance", func(t *testing.T) {
		assert.Zero(t, defaults[identity.PlanTierFree].MaxStorageBytes)
		assert.Equal(t, int64(100), defaults[identity.PlanTierFree].MaxDBRecords)
	})

	t.Run("enterprise has unlimited users and premium features", func(t *testing.T) {
		ent := defaults[identity.PlanTierEnterprise]
		assert.True(t, IsUnlimited(ent.MaxUsers))
		assert.True(t, ent.HasFeature(FeatureAdvancedReporting))
		assert.True(t, ent.HasFeature(FeatureAPIAccess))
		assert.True(t, ent.HasFeature(FeaturePrioritySupport))
	})

	t.Run("lower tiers lack premium features", func(t *testing.T) {
		assert.False(t, defaults[identity.PlanTierFree].HasFeature(FeatureAdvancedReporting))
		assert.False(t, defaults[identity.PlanTierStarter].HasFeature(FeatureAPIAccess))
		assert.True(t, defaults[identity.PlanTierBusiness].HasFeature(FeatureAdvancedReporting))
		assert.False(t, defaults[identity.PlanTierBusiness].HasFeature(FeaturePrioritySupport))
	})
}

func TestQuotaDimensionAccessors(t *testing.T) {
	counter := &UsageCounter{
		StorageBytes:    10,
		DBRecordCount:   20,
		APICallsToday:   30,
		EmailsThisMonth: 40,
	}
	limits := &PlanLimit{
		MaxStorageBytes:   100,
		MaxDBRecords:      200,
		MaxAPICallsPerDay: 300,
		MaxEmailsPerMonth: 400,
	}

	cases := []struct {
		dim     QuotaDimension
		counter int64
		limit   int64
	}{
		{DimensionStorage, 10, 100},
		{DimensionRecords, 20, 200},
		{DimensionAPI, 30, 300},
		{DimensionEmails, 40, 400},
	}
	for _, tc := range cases {
		t.Run(tc.dim.String(), func(t *testing.T) {
			assert.Equal(t, tc.counter, tc.dim.CounterValue(counter))
			assert.Equal(t, tc.limit, tc.dim.LimitValue(limits))
			assert.True(t, tc.dim.IsValid())
		})
	}

	assert.False(t, QuotaDimension("widgets").IsValid())
}

func TestUsageKind(t *testing.T) {
	assert.Equal(t, int64(1), UsageKindAPICall.Delta())
	assert.Equal(t, int64(1), UsageKindRecordCreated.Delta())
	assert.Equal(t, int64(-1), UsageKindRecordDeleted.Delta())
	assert.True(t, UsageKindEmailSent.IsValid())
	assert.False(t, UsageKind("login").IsValid())
}

func TestCheckResultConstructors(t *testing.T) {
	t.Run("quota denial carries numeric detail", func(t *testing.T) {
		result := DenyQuotaExceeded(DimensionRecords, 5000, 5000, identity.PlanTierStarter)

		assert.False(t, result.Allowed)
		assert.Equal(t, ReasonQuotaExceeded, result.ReasonCode)
		assert.Equal(t, int64(5000), result.CurrentUsage)
		assert.Equal(t, int64(5000), result.Limit)
		assert.Equal(t, identity.PlanTierStarter, result.PlanTier)
		assert.Contains(t, result.Message, "starter")
	})

	t.Run("status denials use distinct reason codes", func(t *testing.T) {
		assert.Equal(t, ReasonAccountReadOnly, DenyReadOnly().ReasonCode)
		assert.Equal(t, ReasonAccountSuspended, DenySuspended().ReasonCode)
		assert.Equal(t, ReasonAccountCancelled, DenyCancelled().ReasonCode)
		assert.True(t, Allow().Allowed)
	})
}
