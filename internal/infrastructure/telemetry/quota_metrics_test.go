package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestQuotaMetrics(t *testing.T) {
	ctx := context.Background()

	newFixture := func(t *testing.T) (*QuotaMetrics, *sdkmetric.ManualReader) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		qm, err := NewQuotaMetrics(provider.Meter("test"))
		require.NoError(t, err)
		return qm, reader
	}

	t.Run("records dropped events", func(t *testing.T) {
		qm, reader := newFixture(t)

		qm.RecordEventDropped(ctx, "api_call")
		qm.RecordEventDropped(ctx, "email_sent")

		assert.Equal(t, int64(2), collectSum(t, reader, "crm_usage_events_dropped_total"))
	})

	t.Run("records flush batch sizes", func(t *testing.T) {
		qm, reader := newFixture(t)

		qm.RecordFlush(ctx, 3, 120)
		qm.RecordFlush(ctx, 1, 5)

		assert.Equal(t, int64(2), collectSum(t, reader, "crm_usage_flush_total"))
		assert.Equal(t, int64(4), collectSum(t, reader, "crm_usage_flush_tenants_total"))
		assert.Equal(t, int64(125), collectSum(t, reader, "crm_usage_flush_events_total"))
	})

	t.Run("records flush failures and denials", func(t *testing.T) {
		qm, reader := newFixture(t)

		qm.RecordFlushFailure(ctx)
		qm.RecordQuotaDenial(ctx, "quota_exceeded")
		qm.RecordQuotaDenial(ctx, "account_read_only")

		assert.Equal(t, int64(1), collectSum(t, reader, "crm_usage_flush_failures_total"))
		assert.Equal(t, int64(2), collectSum(t, reader, "crm_quota_denials_total"))
	})
}
