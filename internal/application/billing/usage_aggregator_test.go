package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
)

func newTestAggregator(repo billing.UsageCounterRepository, config UsageAggregatorConfig) *UsageAggregator {
	return NewUsageAggregator(repo, zap.NewNop(), nil, config)
}

func TestUsageAggregatorFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("applies net deltas per kind", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})
		tenantID := uuid.New()

		for i := 0; i < 7; i++ {
			agg.Record(tenantID, billing.UsageKindRecordCreated)
		}
		for i := 0; i < 3; i++ {
			agg.Record(tenantID, billing.UsageKindRecordDeleted)
		}
		agg.Record(tenantID, billing.UsageKindAPICall)
		agg.Record(tenantID, billing.UsageKindEmailSent)

		agg.Flush(ctx)

		counter, err := repo.FindByTenantID(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), counter.DBRecordCount)
		assert.Equal(t, int64(1), counter.APICallsToday)
		assert.Equal(t, int64(1), counter.EmailsThisMonth)
	})

	t.Run("one write per tenant per flush", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})
		tenantID := uuid.New()

		for i := 0; i < 50; i++ {
			agg.Record(tenantID, billing.UsageKindAPICall)
		}
		agg.Flush(ctx)

		assert.Equal(t, 1, repo.writeCount(tenantID))
	})

	t.Run("empty queue skips work", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})

		agg.Flush(ctx)

		assert.Empty(t, repo.counters)
	})

	t.Run("one tenant failure does not stop the rest", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})
		bad := uuid.New()
		good := uuid.New()
		repo.failing[bad] = true

		agg.Record(bad, billing.UsageKindAPICall)
		agg.Record(good, billing.UsageKindAPICall)
		agg.Flush(ctx)

		counter, err := repo.FindByTenantID(ctx, good)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counter.APICallsToday)
		assert.Zero(t, agg.QueueDepth(), "failed batches are not re-queued")
	})

	t.Run("deletions beyond current count clamp at zero", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})
		tenantID := uuid.New()

		seed, err := repo.GetOrCreate(ctx, tenantID)
		require.NoError(t, err)
		seed.DBRecordCount = 2

		for i := 0; i < 10; i++ {
			agg.Record(tenantID, billing.UsageKindRecordDeleted)
		}
		agg.Flush(ctx)

		counter, err := repo.FindByTenantID(ctx, tenantID)
		require.NoError(t, err)
		assert.Zero(t, counter.DBRecordCount)
	})

	t.Run("expired window rolls over before deltas apply", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})
		tenantID := uuid.New()

		seed, err := repo.GetOrCreate(ctx, tenantID)
		require.NoError(t, err)
		seed.APICallsToday = 400
		seed.APICallsResetAt = time.Now().Add(-time.Hour)

		agg.Record(tenantID, billing.UsageKindAPICall)
		agg.Flush(ctx)

		counter, err := repo.FindByTenantID(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counter.APICallsToday)
	})
}

func TestUsageAggregatorQueueBounds(t *testing.T) {
	t.Run("drops events past capacity", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{QueueCapacity: 5})
		tenantID := uuid.New()

		for i := 0; i < 8; i++ {
			agg.Record(tenantID, billing.UsageKindAPICall)
		}

		assert.Equal(t, 5, agg.QueueDepth())
		assert.Equal(t, int64(3), agg.DroppedEvents())
	})

	t.Run("ignores invalid input", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})

		agg.Record(uuid.Nil, billing.UsageKindAPICall)
		agg.Record(uuid.New(), billing.UsageKind("login"))

		assert.Zero(t, agg.QueueDepth())
	})
}

func TestUsageAggregatorPendingAPICalls(t *testing.T) {
	repo := newMemCounterRepo()
	agg := newTestAggregator(repo, UsageAggregatorConfig{})
	tenantA := uuid.New()
	tenantB := uuid.New()

	agg.Record(tenantA, billing.UsageKindAPICall)
	agg.Record(tenantA, billing.UsageKindAPICall)
	agg.Record(tenantA, billing.UsageKindEmailSent)
	agg.Record(tenantB, billing.UsageKindAPICall)

	assert.Equal(t, int64(2), agg.PendingAPICalls(tenantA))
	assert.Equal(t, int64(1), agg.PendingAPICalls(tenantB))

	agg.Flush(context.Background())

	assert.Zero(t, agg.PendingAPICalls(tenantA))
}

func TestUsageAggregatorLifecycle(t *testing.T) {
	t.Run("background loop flushes on the interval", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{FlushInterval: 10 * time.Millisecond})
		tenantID := uuid.New()

		require.NoError(t, agg.Start(context.Background()))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = agg.Stop(stopCtx)
		}()

		agg.Record(tenantID, billing.UsageKindRecordCreated)

		assert.Eventually(t, func() bool {
			counter, err := repo.FindByTenantID(context.Background(), tenantID)
			return err == nil && counter.DBRecordCount == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("start is idempotent", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{FlushInterval: time.Hour})

		require.NoError(t, agg.Start(context.Background()))
		require.NoError(t, agg.Start(context.Background()))
		assert.True(t, agg.IsRunning())

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, agg.Stop(stopCtx))
		assert.False(t, agg.IsRunning())
	})

	t.Run("stop drains buffered events", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{FlushInterval: time.Hour})
		tenantID := uuid.New()

		require.NoError(t, agg.Start(context.Background()))
		agg.Record(tenantID, billing.UsageKindEmailSent)

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, agg.Stop(stopCtx))

		counter, err := repo.FindByTenantID(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counter.EmailsThisMonth)
	})

	t.Run("stop when never started is a no-op", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{})

		assert.NoError(t, agg.Stop(context.Background()))
	})

	t.Run("concurrent start and stop never observe a nil cancel", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := newTestAggregator(repo, UsageAggregatorConfig{FlushInterval: time.Hour})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = agg.Start(context.Background())
			}()
			go func() {
				defer wg.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = agg.Stop(stopCtx)
			}()
		}
		wg.Wait()

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, agg.Stop(stopCtx))
		assert.False(t, agg.IsRunning())
	})
}
