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

// OperationKind classifies the request being admitted
type OperationKind string

const (
	OperationRead  OperationKind = "read"
	OperationWrite OperationKind = "write"
)

// IsMutation returns true for operations that change tenant data
func (o OperationKind) IsMutation() bool {
	return o == OperationWrite
}

// LimitProvider serves plan limits per tier. Satisfied by PlanLimitRegistry.
type LimitProvider interface {
	GetLimits(ctx context.Context, tier identity.PlanTier) (*billing.PlanLimit, error)
}

// PendingUsage exposes the aggregator's unflushed event counts.
// Satisfied by UsageAggregator.
type PendingUsage interface {
	PendingAPICalls(tenantID uuid.UUID) int64
}

// QuotaEnforcer is the synchronous admission gate called before a
// mutating operation proceeds. It combines tenant status, durable
// counters, pending unflushed events, and plan limits into a single
// allow/deny decision. It never increments counters itself; writes
// are limited to idempotent window rollover and the active to
// read-only transition when a hard quota is hit.
//
// Expected business outcomes come back as a CheckResult; a returned
// error always means the check itself faulted.
type QuotaEnforcer struct {
	tenantRepo  identity.TenantRepository
	counterRepo billing.UsageCounterRepository
	limits      LimitProvider
	pending     PendingUsage
	notifier    billing.QuotaNotifier
	logger      *zap.Logger
	metrics     QuotaMetrics
}

// NewQuotaEnforcer creates a new QuotaEnforcer
func NewQuotaEnforcer(
	tenantRepo identity.TenantRepository,
	counterRepo billing.UsageCounterRepository,
	limits LimitProvider,
	pending PendingUsage,
	notifier billing.QuotaNotifier,
	logger *zap.Logger,
	metrics QuotaMetrics,
) *QuotaEnforcer {
	return &QuotaEnforcer{
		tenantRepo:  tenantRepo,
		counterRepo: counterRepo,
		limits:      limits,
		pending:     pending,
		notifier:    notifier,
		logger:      logger,
		metrics:     ensureMetrics(metrics),
	}
}

// Check decides whether the operation may proceed. Pass an empty
// dimension when only the tenant's status matters.
func (e *QuotaEnforcer) Check(ctx context.Context, tenantID uuid.UUID, operation OperationKind, dimension billing.QuotaDimension) (billing.CheckResult, error) {
	if tenantID == uuid.Nil {
		return billing.CheckResult{}, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if dimension != "" && !dimension.IsValid() {
		return billing.CheckResult{}, shared.NewDomainError("INVALID_DIMENSION", "Unknown quota dimension")
	}

	tenant, err := e.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Missing tenant is a data-integrity fault upstream, not a
			// quota violation the client can act on
			return billing.CheckResult{}, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return billing.CheckResult{}, err
	}

	if result, blocked := e.checkStatus(ctx, tenant, operation); blocked {
		return result, nil
	}

	// The counter row is materialized on every check, even status-only
	// ones, so a tenant's first admitted request leaves a row behind
	counter, err := e.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return billing.CheckResult{}, err
	}
	if counter.ApplyRollover(time.Now()) {
		if err := e.counterRepo.Update(ctx, counter); err != nil {
			return billing.CheckResult{}, err
		}
	}

	if dimension == "" {
		return billing.Allow(), nil
	}

	limits, err := e.limits.GetLimits(ctx, tenant.Plan)
	if err != nil {
		return billing.CheckResult{}, err
	}

	limit := dimension.LimitValue(limits)
	if billing.IsUnlimited(limit) {
		return billing.Allow(), nil
	}

	usage := dimension.CounterValue(counter)
	if dimension == billing.DimensionAPI && e.pending != nil {
		// Calls already recorded but not yet flushed count toward the
		// daily cap, so a burst inside the staleness window cannot
		// evade it
		usage += e.pending.PendingAPICalls(tenantID)
	}

	if usage >= limit {
		e.metrics.RecordQuotaDenial(ctx, billing.ReasonQuotaExceeded)
		e.logger.Info("Quota check denied",
			zap.String("tenant_id", tenantID.String()),
			zap.String("dimension", dimension.String()),
			zap.Int64("usage", usage),
			zap.Int64("limit", limit),
			zap.String("plan_tier", tenant.Plan.String()))

		// usage > 0 keeps a zero allowance with zero consumption
		// from flipping the tenant read-only
		if isHardQuota(dimension) && usage > 0 {
			e.enterReadOnly(ctx, tenant, dimension, usage, limit)
		}

		return billing.DenyQuotaExceeded(dimension, usage, limit, tenant.Plan), nil
	}

	return billing.Allow(), nil
}

// CheckUpload decides whether a file of the given size fits the
// tenant's storage allowance. Unlike Check, the comparison is
// projected usage against the ceiling, so the free tier's zero
// allowance rejects any upload.
func (e *QuotaEnforcer) CheckUpload(ctx context.Context, tenantID uuid.UUID, sizeBytes int64) (billing.CheckResult, error) {
	if sizeBytes < 0 {
		return billing.CheckResult{}, shared.NewDomainError("INVALID_INPUT", "File size cannot be negative")
	}

	tenant, err := e.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.CheckResult{}, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return billing.CheckResult{}, err
	}

	if result, blocked := e.checkStatus(ctx, tenant, OperationWrite); blocked {
		return result, nil
	}

	limits, err := e.limits.GetLimits(ctx, tenant.Plan)
	if err != nil {
		return billing.CheckResult{}, err
	}
	if billing.IsUnlimited(limits.MaxStorageBytes) {
		return billing.Allow(), nil
	}

	counter, err := e.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return billing.CheckResult{}, err
	}

	if counter.StorageBytes+sizeBytes > limits.MaxStorageBytes {
		e.metrics.RecordQuotaDenial(ctx, billing.ReasonQuotaExceeded)
		return billing.DenyQuotaExceeded(billing.DimensionStorage, counter.StorageBytes, limits.MaxStorageBytes, tenant.Plan), nil
	}

	return billing.Allow(), nil
}

// checkStatus evaluates the tenant status layer. Billing-blocked
// states deny every operation; read-only denies mutations only.
func (e *QuotaEnforcer) checkStatus(ctx context.Context, tenant *identity.Tenant, operation OperationKind) (billing.CheckResult, bool) {
	switch tenant.Status {
	case identity.TenantStatusSuspended:
		e.metrics.RecordQuotaDenial(ctx, billing.ReasonAccountSuspended)
		return billing.DenySuspended(), true
	case identity.TenantStatusCancelled:
		e.metrics.RecordQuotaDenial(ctx, billing.ReasonAccountCancelled)
		return billing.DenyCancelled(), true
	case identity.TenantStatusReadOnly:
		if operation.IsMutation() {
			e.metrics.RecordQuotaDenial(ctx, billing.ReasonAccountReadOnly)
			return billing.DenyReadOnly(), true
		}
	}
	return billing.CheckResult{}, false
}

// isHardQuota reports whether hitting the dimension flips the tenant
// to read-only. Periodic counters reset on their own and do not.
func isHardQuota(dimension billing.QuotaDimension) bool {
	return dimension == billing.DimensionRecords || dimension == billing.DimensionStorage
}

func (e *QuotaEnforcer) enterReadOnly(ctx context.Context, tenant *identity.Tenant, dimension billing.QuotaDimension, usage, limit int64) {
	if !tenant.IsActive() {
		return
	}
	if err := tenant.MarkReadOnly(); err != nil {
		return
	}
	if err := e.tenantRepo.Update(ctx, tenant); err != nil {
		e.logger.Error("Failed to persist read-only transition",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
		return
	}

	e.logger.Warn("Tenant entered read-only mode",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("dimension", dimension.String()),
		zap.Int64("usage", usage),
		zap.Int64("limit", limit))

	if e.notifier != nil {
		e.notifier.NotifyQuotaReached(ctx, tenant, dimension, usage, limit)
	}
}
