package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// UsageSummaryDTO is the tenant-facing view of current usage against
// plan ceilings
type UsageSummaryDTO struct {
	TenantID   uuid.UUID                 `json:"tenant_id"`
	PlanTier   identity.PlanTier         `json:"plan_tier"`
	Status     identity.TenantStatus     `json:"status"`
	Dimensions map[string]UsageDetailDTO `json:"dimensions"`
	Features   map[string]bool           `json:"features"`
	ResetAt    map[string]time.Time      `json:"reset_at"`
	AsOf       time.Time                 `json:"as_of"`
}

// UsageDetailDTO describes one quota dimension
type UsageDetailDTO struct {
	CurrentUsage int64   `json:"current_usage"`
	Limit        int64   `json:"limit"`
	Remaining    int64   `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	Unlimited    bool    `json:"unlimited"`
}

// SummaryCache caches rendered usage summaries. Misses are reported as
// shared.ErrNotFound.
type SummaryCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*UsageSummaryDTO, error)
	Set(ctx context.Context, tenantID uuid.UUID, summary *UsageSummaryDTO) error
}

// UsageSummaryService renders usage summaries for the account UI.
// Summaries are cached briefly since the page is polled and the
// underlying counters only move once per aggregation interval anyway.
type UsageSummaryService struct {
	counterRepo billing.UsageCounterRepository
	tenantRepo  identity.TenantRepository
	registry    *PlanLimitRegistry
	cache       SummaryCache
	logger      *zap.Logger
}

// NewUsageSummaryService creates a new UsageSummaryService
func NewUsageSummaryService(
	counterRepo billing.UsageCounterRepository,
	tenantRepo identity.TenantRepository,
	registry *PlanLimitRegistry,
	cache SummaryCache,
	logger *zap.Logger,
) *UsageSummaryService {
	return &UsageSummaryService{
		counterRepo: counterRepo,
		tenantRepo:  tenantRepo,
		registry:    registry,
		cache:       cache,
		logger:      logger,
	}
}

// GetUsageSummary returns the tenant's usage across all dimensions
func (s *UsageSummaryService) GetUsageSummary(ctx context.Context, tenantID uuid.UUID) (*UsageSummaryDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tenantID); err == nil {
			return cached, nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Usage summary cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}

	counter, err := s.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if counter.ApplyRollover(time.Now()) {
		if err := s.counterRepo.Update(ctx, counter); err != nil {
			return nil, err
		}
	}

	limits, err := s.registry.GetLimits(ctx, tenant.Plan)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummaryDTO{
		TenantID:   tenantID,
		PlanTier:   tenant.Plan,
		Status:     tenant.Status,
		Dimensions: make(map[string]UsageDetailDTO, 4),
		Features:   limits.Features,
		ResetAt: map[string]time.Time{
			billing.DimensionAPI.String():    counter.APICallsResetAt,
			billing.DimensionEmails.String(): counter.EmailsResetAt,
		},
		AsOf: time.Now(),
	}

	for _, dim := range []billing.QuotaDimension{
		billing.DimensionStorage, billing.DimensionRecords,
		billing.DimensionAPI, billing.DimensionEmails,
	} {
		summary.Dimensions[dim.String()] = usageDetail(dim.CounterValue(counter), dim.LimitValue(limits))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, summary); err != nil {
			s.logger.Warn("Usage summary cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	return summary, nil
}

func usageDetail(usage, limit int64) UsageDetailDTO {
	detail := UsageDetailDTO{
		CurrentUsage: usage,
		Limit:        limit,
	}
	if billing.IsUnlimited(limit) {
		detail.Unlimited = true
		detail.Remaining = -1
		return detail
	}
	detail.Remaining = limit - usage
	if detail.Remaining < 0 {
		detail.Remaining = 0
	}
	if limit > 0 {
		detail.Percentage = float64(usage) / float64(limit) * 100
		if detail.Percentage > 100 {
			detail.Percentage = 100
		}
	} else if usage > 0 {
		detail.Percentage = 100
	}
	return detail
}
