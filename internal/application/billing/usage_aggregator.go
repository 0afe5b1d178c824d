package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/billing"
)

// UsageAggregator absorbs a high-frequency stream of small usage events
// and folds them into the counter store on a fixed interval, one write
// per tenant touched per interval instead of one per event.
//
// Record never blocks on I/O: events land in an in-memory bounded
// queue, and a single background loop drains it. Exactly one
// aggregator instance may run against a given counter store.
type UsageAggregator struct {
	counterRepo billing.UsageCounterRepository
	logger      *zap.Logger
	metrics     QuotaMetrics
	config      UsageAggregatorConfig

	queueMu sync.Mutex
	queue   []billing.UsageEvent
	dropped int64

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// UsageAggregatorConfig holds configuration for the usage aggregator
type UsageAggregatorConfig struct {
	// FlushInterval is the period between background flushes
	FlushInterval time.Duration

	// QueueCapacity bounds the in-memory event queue; events past the
	// bound are dropped rather than blocking callers
	QueueCapacity int

	// ShutdownFlushTimeout bounds the final drain on Stop
	ShutdownFlushTimeout time.Duration
}

// DefaultUsageAggregatorConfig returns default configuration
func DefaultUsageAggregatorConfig() UsageAggregatorConfig {
	return UsageAggregatorConfig{
		FlushInterval:        5 * time.Second,
		QueueCapacity:        10000,
		ShutdownFlushTimeout: 10 * time.Second,
	}
}

// NewUsageAggregator creates a new UsageAggregator
func NewUsageAggregator(
	counterRepo billing.UsageCounterRepository,
	logger *zap.Logger,
	metrics QuotaMetrics,
	config UsageAggregatorConfig,
) *UsageAggregator {
	defaults := DefaultUsageAggregatorConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = defaults.QueueCapacity
	}
	if config.ShutdownFlushTimeout <= 0 {
		config.ShutdownFlushTimeout = defaults.ShutdownFlushTimeout
	}
	return &UsageAggregator{
		counterRepo: counterRepo,
		logger:      logger,
		metrics:     ensureMetrics(metrics),
		config:      config,
	}
}

// Record enqueues one usage event for the tenant. It returns
// immediately and never touches the durable store. If the queue is
// full the event is dropped and counted.
func (a *UsageAggregator) Record(tenantID uuid.UUID, kind billing.UsageKind) {
	if tenantID == uuid.Nil || !kind.IsValid() {
		return
	}

	a.queueMu.Lock()
	if len(a.queue) >= a.config.QueueCapacity {
		a.dropped++
		a.queueMu.Unlock()
		a.metrics.RecordEventDropped(context.Background(), kind.String())
		return
	}
	a.queue = append(a.queue, billing.NewUsageEvent(tenantID, kind))
	a.queueMu.Unlock()
}

// PendingAPICalls returns how many api_call events for the tenant are
// still buffered and not yet flushed. The enforcer adds this to the
// durable counter so an in-flight burst cannot slip past the daily cap
// inside the staleness window. Best-effort snapshot, no lock is held
// against concurrent Record calls once it returns.
func (a *UsageAggregator) PendingAPICalls(tenantID uuid.UUID) int64 {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()

	var n int64
	for _, ev := range a.queue {
		if ev.TenantID == tenantID && ev.Kind == billing.UsageKindAPICall {
			n++
		}
	}
	return n
}

// DroppedEvents returns how many events were dropped due to a full queue
func (a *UsageAggregator) DroppedEvents() int64 {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	return a.dropped
}

// QueueDepth returns the current number of buffered events
func (a *UsageAggregator) QueueDepth() int {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	return len(a.queue)
}

// Start launches the background flush loop. Idempotent.
func (a *UsageAggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.isRunning {
		a.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.isRunning = true
	a.cancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx)

	a.logger.Info("Usage aggregator started",
		zap.Duration("flush_interval", a.config.FlushInterval),
		zap.Int("queue_capacity", a.config.QueueCapacity),
	)

	return nil
}

// Stop cancels the flush loop, waits for it, then attempts one final
// bounded drain so buffered events are not lost on clean shutdown.
func (a *UsageAggregator) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return nil
	}
	a.isRunning = false
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Usage aggregator stop timed out waiting for flush loop")
		return ctx.Err()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownFlushTimeout)
	defer cancel()
	a.Flush(flushCtx)

	a.logger.Info("Usage aggregator stopped")
	return nil
}

// IsRunning returns whether the flush loop is active
func (a *UsageAggregator) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isRunning
}

func (a *UsageAggregator) run(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Usage aggregator flush loop stopping")
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush drains the queue and persists net deltas, one write per tenant.
// A failure on one tenant's batch is logged and does not stop the rest;
// failed batches are not re-queued, periodic recompute corrects any
// resulting drift.
func (a *UsageAggregator) Flush(ctx context.Context) {
	a.queueMu.Lock()
	if len(a.queue) == 0 {
		a.queueMu.Unlock()
		return
	}
	batch := a.queue
	a.queue = nil
	a.queueMu.Unlock()

	// Net event count per tenant per kind
	grouped := make(map[uuid.UUID]map[billing.UsageKind]int64)
	for _, ev := range batch {
		kinds, ok := grouped[ev.TenantID]
		if !ok {
			kinds = make(map[billing.UsageKind]int64)
			grouped[ev.TenantID] = kinds
		}
		kinds[ev.Kind]++
	}

	now := time.Now()
	flushed := 0
	for tenantID, kinds := range grouped {
		if err := a.flushTenant(ctx, tenantID, kinds, now); err != nil {
			a.logger.Error("Failed to flush usage batch for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			a.metrics.RecordFlushFailure(ctx)
			continue
		}
		flushed++
	}

	a.metrics.RecordFlush(ctx, flushed, len(batch))
	a.logger.Debug("Usage batch flushed",
		zap.Int("events", len(batch)),
		zap.Int("tenants_flushed", flushed),
		zap.Int("tenants_total", len(grouped)),
	)
}

// Counter fields are written additions before subtractions so the
// zero clamp applies to the interval's net result.
var flushKindOrder = []billing.UsageKind{
	billing.UsageKindAPICall,
	billing.UsageKindEmailSent,
	billing.UsageKindRecordCreated,
	billing.UsageKindRecordDeleted,
}

func (a *UsageAggregator) flushTenant(ctx context.Context, tenantID uuid.UUID, kinds map[billing.UsageKind]int64, now time.Time) error {
	counter, err := a.counterRepo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return err
	}

	counter.ApplyRollover(now)

	for _, kind := range flushKindOrder {
		if count := kinds[kind]; count > 0 {
			counter.ApplyDelta(kind, count)
		}
	}

	return a.counterRepo.Update(ctx, counter)
}
