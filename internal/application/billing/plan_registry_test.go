package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
)

func starterLimits(t *testing.T) *billing.PlanLimit {
	t.Helper()
	limit, err := billing.NewPlanLimit(identity.PlanTierStarter, 3, 2<<30, 5000, 5000, 100, nil)
	require.NoError(t, err)
	return limit
}

func TestPlanLimitRegistryGetLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("serves limits from the store", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{starterLimits(t)}, nil).Once()

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), DefaultPlanLimitRegistryConfig())
		limits, err := registry.GetLimits(ctx, identity.PlanTierStarter)

		require.NoError(t, err)
		assert.Equal(t, int64(5000), limits.MaxDBRecords)
		repo.AssertExpectations(t)
	})

	t.Run("caches within the TTL", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{starterLimits(t)}, nil).Once()

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), PlanLimitRegistryConfig{CacheTTL: time.Hour})
		for i := 0; i < 10; i++ {
			_, err := registry.GetLimits(ctx, identity.PlanTierStarter)
			require.NoError(t, err)
		}

		repo.AssertNumberOfCalls(t, "FindAll", 1)
	})

	t.Run("refetches after the TTL expires", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{starterLimits(t)}, nil).Twice()

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), PlanLimitRegistryConfig{CacheTTL: time.Nanosecond})
		_, err := registry.GetLimits(ctx, identity.PlanTierStarter)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = registry.GetLimits(ctx, identity.PlanTierStarter)
		require.NoError(t, err)

		repo.AssertNumberOfCalls(t, "FindAll", 2)
	})

	t.Run("falls back to defaults when the store errors", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return(nil, errors.New("connection refused"))

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), DefaultPlanLimitRegistryConfig())
		limits, err := registry.GetLimits(ctx, identity.PlanTierBusiness)

		require.NoError(t, err)
		assert.Equal(t, int64(50000), limits.MaxDBRecords)
		assert.True(t, limits.HasFeature(billing.FeatureAdvancedReporting))
	})

	t.Run("falls back to defaults for a tier with no row", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{starterLimits(t)}, nil)

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), DefaultPlanLimitRegistryConfig())
		limits, err := registry.GetLimits(ctx, identity.PlanTierEnterprise)

		require.NoError(t, err)
		assert.True(t, billing.IsUnlimited(limits.MaxUsers))
	})

	t.Run("unknown tier gets free-tier defaults", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{}, nil)

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), DefaultPlanLimitRegistryConfig())
		limits, err := registry.GetLimits(ctx, identity.PlanTier("platinum"))

		require.NoError(t, err)
		assert.Equal(t, int64(100), limits.MaxDBRecords)
	})

	t.Run("invalidate forces a refetch", func(t *testing.T) {
		repo := new(MockPlanLimitRepository)
		repo.On("FindAll", ctx).Return([]*billing.PlanLimit{starterLimits(t)}, nil).Twice()

		registry := NewPlanLimitRegistry(repo, zap.NewNop(), PlanLimitRegistryConfig{CacheTTL: time.Hour})
		_, err := registry.GetLimits(ctx, identity.PlanTierStarter)
		require.NoError(t, err)

		registry.Invalidate()

		_, err = registry.GetLimits(ctx, identity.PlanTierStarter)
		require.NoError(t, err)
		repo.AssertNumberOfCalls(t, "FindAll", 2)
	})
}

func TestPlanLimitRegistryFeatureEnabled(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPlanLimitRepository)
	repo.On("FindAll", ctx).Return([]*billing.PlanLimit{}, nil)

	registry := NewPlanLimitRegistry(repo, zap.NewNop(), DefaultPlanLimitRegistryConfig())

	assert.True(t, registry.FeatureEnabled(ctx, identity.PlanTierEnterprise, billing.FeatureAPIAccess))
	assert.False(t, registry.FeatureEnabled(ctx, identity.PlanTierFree, billing.FeatureAPIAccess))
}
