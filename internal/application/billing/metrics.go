package billing

import "context"

// QuotaMetrics receives observability signals from the quota pipeline.
// Implemented by the telemetry layer; a nil metrics sink is replaced by
// a no-op so instrumentation never gates the hot path.
type QuotaMetrics interface {
	RecordEventDropped(ctx context.Context, kind string)
	RecordFlush(ctx context.Context, tenants, events int)
	RecordFlushFailure(ctx context.Context)
	RecordQuotaDenial(ctx context.Context, reason string)
}

type noopQuotaMetrics struct{}

func (noopQuotaMetrics) RecordEventDropped(context.Context, string) {}
func (noopQuotaMetrics) RecordFlush(context.Context, int, int)      {}
func (noopQuotaMetrics) RecordFlushFailure(context.Context)         {}
func (noopQuotaMetrics) RecordQuotaDenial(context.Context, string)  {}

func ensureMetrics(m QuotaMetrics) QuotaMetrics {
	if m == nil {
		return noopQuotaMetrics{}
	}
	return m
}
