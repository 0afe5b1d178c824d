package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*identity.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus) ([]*identity.Tenant, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

type MockPlanLimitRepository struct {
	mock.Mock
}

func (m *MockPlanLimitRepository) FindByTier(ctx context.Context, tier identity.PlanTier) (*billing.PlanLimit, error) {
	args := m.Called(ctx, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanLimit), args.Error(1)
}

func (m *MockPlanLimitRepository) FindAll(ctx context.Context) ([]*billing.PlanLimit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.PlanLimit), args.Error(1)
}

func (m *MockPlanLimitRepository) Save(ctx context.Context, limit *billing.PlanLimit) error {
	args := m.Called(ctx, limit)
	return args.Error(0)
}

type MockStorageLedger struct {
	mock.Mock
}

func (m *MockStorageLedger) TotalFileBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEntityLedger struct {
	mock.Mock
}

func (m *MockEntityLedger) CountRecords(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockQuotaNotifier struct {
	mock.Mock
}

func (m *MockQuotaNotifier) NotifyQuotaReached(ctx context.Context, tenant *identity.Tenant, dimension billing.QuotaDimension, current, limit int64) {
	m.Called(ctx, tenant, dimension, current, limit)
}

// memCounterRepo is an in-memory UsageCounterRepository for exercising
// the aggregator and enforcer without a database. Tenants listed in
// failing reject updates, and writes counts Update calls per tenant.
type memCounterRepo struct {
	mu       sync.Mutex
	counters map[uuid.UUID]*billing.UsageCounter
	failing  map[uuid.UUID]bool
	writes   map[uuid.UUID]int
}

func newMemCounterRepo() *memCounterRepo {
	return &memCounterRepo{
		counters: make(map[uuid.UUID]*billing.UsageCounter),
		failing:  make(map[uuid.UUID]bool),
		writes:   make(map[uuid.UUID]int),
	}
}

var _ billing.UsageCounterRepository = (*memCounterRepo)(nil)

func (r *memCounterRepo) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[tenantID]; ok {
		return c, nil
	}
	c, err := billing.NewUsageCounter(tenantID)
	if err != nil {
		return nil, err
	}
	r.counters[tenantID] = c
	return c, nil
}

func (r *memCounterRepo) FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[tenantID]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCounterRepo) Update(ctx context.Context, counter *billing.UsageCounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing[counter.TenantID] {
		return fmt.Errorf("simulated write failure for %s", counter.TenantID)
	}
	r.counters[counter.TenantID] = counter
	r.writes[counter.TenantID]++
	return nil
}

func (r *memCounterRepo) writeCount(tenantID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[tenantID]
}

// staticLimits serves a fixed PlanLimit for every tier
type staticLimits struct {
	limit *billing.PlanLimit
}

func (s staticLimits) GetLimits(ctx context.Context, tier identity.PlanTier) (*billing.PlanLimit, error) {
	return s.limit, nil
}

// staticPending serves a fixed pending api_call count
type staticPending struct {
	n int64
}

func (s staticPending) PendingAPICalls(tenantID uuid.UUID) int64 {
	return s.n
}
