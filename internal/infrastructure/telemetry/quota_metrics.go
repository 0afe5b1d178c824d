package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
)

// QuotaMetrics exports metrics from the usage and quota pipeline.
type QuotaMetrics struct {
	eventsDroppedTotal *Counter
	flushTotal         *Counter
	flushEventsTotal   *Counter
	flushTenantsTotal  *Counter
	flushFailuresTotal *Counter
	quotaDenialsTotal  *Counter
}

var _ appbilling.QuotaMetrics = (*QuotaMetrics)(nil)

// NewQuotaMetrics creates metric instruments on the given meter.
func NewQuotaMetrics(meter metric.Meter) (*QuotaMetrics, error) {
	qm := &QuotaMetrics{}

	var err error
	qm.eventsDroppedTotal, err = NewCounter(
		meter,
		"crm_usage_events_dropped_total",
		"Usage events dropped because the aggregation queue was full",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	qm.flushTotal, err = NewCounter(
		meter,
		"crm_usage_flush_total",
		"Completed usage flush cycles",
		"{flushes}",
	)
	if err != nil {
		return nil, err
	}

	qm.flushEventsTotal, err = NewCounter(
		meter,
		"crm_usage_flush_events_total",
		"Usage events written out by flush cycles",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	qm.flushTenantsTotal, err = NewCounter(
		meter,
		"crm_usage_flush_tenants_total",
		"Tenant counter rows written by flush cycles",
		"{tenants}",
	)
	if err != nil {
		return nil, err
	}

	qm.flushFailuresTotal, err = NewCounter(
		meter,
		"crm_usage_flush_failures_total",
		"Per-tenant flush write failures",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	qm.quotaDenialsTotal, err = NewCounter(
		meter,
		"crm_quota_denials_total",
		"Operations denied by quota enforcement",
		"{denials}",
	)
	if err != nil {
		return nil, err
	}

	return qm, nil
}

// RecordEventDropped counts a usage event rejected at enqueue time.
func (qm *QuotaMetrics) RecordEventDropped(ctx context.Context, kind string) {
	qm.eventsDroppedTotal.Inc(ctx, attribute.String("usage.kind", kind))
}

// RecordFlush counts a completed flush cycle and its batch sizes.
func (qm *QuotaMetrics) RecordFlush(ctx context.Context, tenants, events int) {
	qm.flushTotal.Inc(ctx)
	qm.flushTenantsTotal.Add(ctx, int64(tenants))
	qm.flushEventsTotal.Add(ctx, int64(events))
}

// RecordFlushFailure counts a tenant whose counter write failed.
func (qm *QuotaMetrics) RecordFlushFailure(ctx context.Context) {
	qm.flushFailuresTotal.Inc(ctx)
}

// RecordQuotaDenial counts a denied operation by reason code.
func (qm *QuotaMetrics) RecordQuotaDenial(ctx context.Context, reason string) {
	qm.quotaDenialsTotal.Inc(ctx, AttrReason.String(reason))
}
