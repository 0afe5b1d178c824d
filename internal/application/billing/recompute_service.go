package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// RecomputeService replaces drift-prone incremental counters with
// authoritative values queried from the owning subsystems' ledgers.
// It is the correction mechanism for batches the aggregator dropped
// or failed to flush, and it drives the quota side of the tenant
// status machine: over a hard limit moves an active tenant to
// read-only, back under moves it to active again.
type RecomputeService struct {
	counterRepo   billing.UsageCounterRepository
	tenantRepo    identity.TenantRepository
	storageLedger billing.StorageLedger
	entityLedger  billing.EntityLedger
	limits        LimitProvider
	notifier      billing.QuotaNotifier
	logger        *zap.Logger
}

// NewRecomputeService creates a new RecomputeService
func NewRecomputeService(
	counterRepo billing.UsageCounterRepository,
	tenantRepo identity.TenantRepository,
	storageLedger billing.StorageLedger,
	entityLedger billing.EntityLedger,
	limits LimitProvider,
	notifier billing.QuotaNotifier,
	logger *zap.Logger,
) *RecomputeService {
	return &RecomputeService{
		counterRepo:   counterRepo,
		tenantRepo:    tenantRepo,
		storageLedger: storageLedger,
		entityLedger:  entityLedger,
		limits:        limits,
		notifier:      notifier,
		logger:        logger,
	}
}

// RecomputeStorage replaces storage_bytes with the true total of
// non-deleted file sizes for the tenant
func (s *RecomputeService) RecomputeStorage(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	bytes, err := s.storageLedger.TotalFileBytes(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	counter, err := s.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	counter.ApplyRollover(time.Now())
	counter.SetStorageBytes(bytes)

	if err := s.counterRepo.Update(ctx, counter); err != nil {
		return nil, err
	}

	s.logger.Debug("Storage usage recomputed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("storage_bytes", bytes))

	s.reconcileStatus(ctx, tenantID, counter)
	return counter, nil
}

// RecomputeRecords replaces db_record_count with the true count of
// non-deleted countable entities for the tenant
func (s *RecomputeService) RecomputeRecords(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	count, err := s.entityLedger.CountRecords(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	counter, err := s.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	counter.ApplyRollover(time.Now())
	counter.SetDBRecordCount(count)

	if err := s.counterRepo.Update(ctx, counter); err != nil {
		return nil, err
	}

	s.logger.Debug("Record usage recomputed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("db_record_count", count))

	s.reconcileStatus(ctx, tenantID, counter)
	return counter, nil
}

// reconcileStatus applies the quota-driven status transitions after a
// recompute. Failures here are logged, never propagated: the
// recompute itself already succeeded.
func (s *RecomputeService) reconcileStatus(ctx context.Context, tenantID uuid.UUID, counter *billing.UsageCounter) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Could not load tenant for status reconciliation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}

	limits, err := s.limits.GetLimits(ctx, tenant.Plan)
	if err != nil {
		s.logger.Warn("Could not load plan limits for status reconciliation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}

	overDim, usage, limit := firstHardQuotaExceeded(counter, limits)

	switch {
	case overDim != "" && tenant.IsActive():
		if err := tenant.MarkReadOnly(); err != nil {
			return
		}
		if err := s.tenantRepo.Update(ctx, tenant); err != nil {
			s.logger.Error("Failed to persist read-only transition",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			return
		}
		s.logger.Warn("Tenant entered read-only mode after recompute",
			zap.String("tenant_id", tenantID.String()),
			zap.String("dimension", overDim.String()),
			zap.Int64("usage", usage),
			zap.Int64("limit", limit))
		if s.notifier != nil {
			s.notifier.NotifyQuotaReached(ctx, tenant, overDim, usage, limit)
		}

	case overDim == "" && tenant.IsReadOnly():
		if err := tenant.RestoreFromReadOnly(); err != nil {
			return
		}
		if err := s.tenantRepo.Update(ctx, tenant); err != nil {
			s.logger.Error("Failed to persist read-only restore",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			return
		}
		s.logger.Info("Tenant restored to active after recompute",
			zap.String("tenant_id", tenantID.String()))
	}
}

// firstHardQuotaExceeded returns the first hard dimension at or over
// its ceiling, or an empty dimension when usage is back under all of
// them
func firstHardQuotaExceeded(counter *billing.UsageCounter, limits *billing.PlanLimit) (billing.QuotaDimension, int64, int64) {
	for _, dim := range []billing.QuotaDimension{billing.DimensionRecords, billing.DimensionStorage} {
		limit := dim.LimitValue(limits)
		if billing.IsUnlimited(limit) {
			continue
		}
		// A zero allowance with zero usage is not an exceeded quota
		if usage := dim.CounterValue(counter); usage > 0 && usage >= limit {
			return dim, usage, limit
		}
	}
	return "", 0, 0
}
