package billing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// PlanLimitRegistry serves quota ceilings per subscription tier. The
// full limit table is cached in-process with a fixed TTL so the hot
// path never pays a store query per request. A tier with no stored row
// falls back to the built-in default table, so a check never hard-fails
// on missing configuration.
type PlanLimitRegistry struct {
	repo   billing.PlanLimitRepository
	logger *zap.Logger
	ttl    time.Duration

	mu          sync.RWMutex
	cache       map[identity.PlanTier]*billing.PlanLimit
	lastRefresh time.Time
}

// PlanLimitRegistryConfig contains configuration for PlanLimitRegistry
type PlanLimitRegistryConfig struct {
	CacheTTL time.Duration
}

// DefaultPlanLimitRegistryConfig returns default configuration
func DefaultPlanLimitRegistryConfig() PlanLimitRegistryConfig {
	return PlanLimitRegistryConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// NewPlanLimitRegistry creates a new PlanLimitRegistry
func NewPlanLimitRegistry(repo billing.PlanLimitRepository, logger *zap.Logger, config PlanLimitRegistryConfig) *PlanLimitRegistry {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultPlanLimitRegistryConfig().CacheTTL
	}
	return &PlanLimitRegistry{
		repo:   repo,
		logger: logger,
		ttl:    config.CacheTTL,
	}
}

// GetLimits returns the limits for a tier, from cache when fresh
func (r *PlanLimitRegistry) GetLimits(ctx context.Context, tier identity.PlanTier) (*billing.PlanLimit, error) {
	r.mu.RLock()
	if r.cache != nil && time.Since(r.lastRefresh) < r.ttl {
		limit, ok := r.cache[tier]
		r.mu.RUnlock()
		if ok {
			return limit, nil
		}
		return r.fallback(tier)
	}
	r.mu.RUnlock()

	if err := r.refresh(ctx); err != nil {
		r.logger.Warn("Plan limit refresh failed, using defaults",
			zap.String("plan_tier", tier.String()),
			zap.Error(err))
		return r.fallback(tier)
	}

	r.mu.RLock()
	limit, ok := r.cache[tier]
	r.mu.RUnlock()
	if ok {
		return limit, nil
	}
	return r.fallback(tier)
}

// FeatureEnabled returns true if the named feature flag is on for the tier
func (r *PlanLimitRegistry) FeatureEnabled(ctx context.Context, tier identity.PlanTier, feature string) bool {
	limits, err := r.GetLimits(ctx, tier)
	if err != nil {
		return false
	}
	return limits.HasFeature(feature)
}

// Invalidate drops the cache so the next read refetches. Used after
// administrative limit updates.
func (r *PlanLimitRegistry) Invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.lastRefresh = time.Time{}
	r.mu.Unlock()
}

func (r *PlanLimitRegistry) refresh(ctx context.Context) error {
	rows, err := r.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	cache := make(map[identity.PlanTier]*billing.PlanLimit, len(rows))
	for _, row := range rows {
		cache[row.PlanTier] = row
	}

	r.mu.Lock()
	r.cache = cache
	r.lastRefresh = time.Now()
	r.mu.Unlock()

	r.logger.Debug("Plan limit cache refreshed", zap.Int("tiers", len(cache)))
	return nil
}

func (r *PlanLimitRegistry) fallback(tier identity.PlanTier) (*billing.PlanLimit, error) {
	defaults := billing.DefaultPlanLimits()
	if limit, ok := defaults[tier]; ok {
		return limit, nil
	}
	// Unknown tiers get the most restrictive defaults
	return defaults[identity.PlanTierFree], nil
}
