package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsageCounter(t *testing.T) {
	t.Run("initializes zeroed counters with fresh windows", func(t *testing.T) {
		tenantID := uuid.New()
		before := time.Now()

		counter, err := NewUsageCounter(tenantID)

		require.NoError(t, err)
		assert.Equal(t, tenantID, counter.TenantID)
		assert.Zero(t, counter.StorageBytes)
		assert.Zero(t, counter.DBRecordCount)
		assert.Zero(t, counter.APICallsToday)
		assert.Zero(t, counter.EmailsThisMonth)
		assert.WithinDuration(t, before.Add(24*time.Hour), counter.APICallsResetAt, time.Second)
		assert.Equal(t, NextMonthStart(before), counter.EmailsResetAt)
	})

	t.Run("rejects empty tenant", func(t *testing.T) {
		counter, err := NewUsageCounter(uuid.Nil)

		assert.Error(t, err)
		assert.Nil(t, counter)
	})
}

func TestNextMonthStart(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "mid month",
			in:   time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
			want: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "31st of a month",
			in:   time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "leap year February",
			in:   time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non leap February",
			in:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "December rolls to January of next year",
			in:   time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly first of month",
			in:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextMonthStart(tc.in))
		})
	}
}

func TestApplyRollover(t *testing.T) {
	t.Run("no change when windows are current", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.APICallsToday = 42

		changed := counter.ApplyRollover(time.Now())

		assert.False(t, changed)
		assert.Equal(t, int64(42), counter.APICallsToday)
	})

	t.Run("expired daily window zeroes api calls", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.APICallsToday = 42
		counter.APICallsResetAt = time.Now().Add(-time.Hour)

		now := time.Now()
		changed := counter.ApplyRollover(now)

		assert.True(t, changed)
		assert.Zero(t, counter.APICallsToday)
		assert.Equal(t, now.Add(24*time.Hour), counter.APICallsResetAt)
	})

	t.Run("expired monthly window zeroes emails", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.EmailsThisMonth = 99
		counter.EmailsResetAt = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

		now := time.Date(2025, 2, 1, 0, 0, 0, 1, time.UTC)
		changed := counter.ApplyRollover(now)

		assert.True(t, changed)
		assert.Zero(t, counter.EmailsThisMonth)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), counter.EmailsResetAt)
	})

	t.Run("daily rollover leaves monthly counters untouched", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.APICallsResetAt = time.Now().Add(-time.Minute)
		counter.EmailsThisMonth = 7

		counter.ApplyRollover(time.Now())

		assert.Equal(t, int64(7), counter.EmailsThisMonth)
	})
}

func TestApplyDelta(t *testing.T) {
	t.Run("applies positive deltas per kind", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())

		counter.ApplyDelta(UsageKindAPICall, 5)
		counter.ApplyDelta(UsageKindEmailSent, 2)
		counter.ApplyDelta(UsageKindRecordCreated, 7)

		assert.Equal(t, int64(5), counter.APICallsToday)
		assert.Equal(t, int64(2), counter.EmailsThisMonth)
		assert.Equal(t, int64(7), counter.DBRecordCount)
	})

	t.Run("record deletions subtract", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.DBRecordCount = 10

		counter.ApplyDelta(UsageKindRecordDeleted, 4)

		assert.Equal(t, int64(6), counter.DBRecordCount)
	})

	t.Run("deletions clamp at zero", func(t *testing.T) {
		counter, _ := NewUsageCounter(uuid.New())
		counter.DBRecordCount = 3

		counter.ApplyDelta(UsageKindRecordDeleted, 10)

		assert.Zero(t, counter.DBRecordCount)
	})
}

func TestAuthoritativeSetters(t *testing.T) {
	counter, _ := NewUsageCounter(uuid.New())

	counter.SetStorageBytes(1 << 20)
	counter.SetDBRecordCount(123)

	assert.Equal(t, int64(1<<20), counter.StorageBytes)
	assert.Equal(t, int64(123), counter.DBRecordCount)

	counter.SetStorageBytes(-5)
	counter.SetDBRecordCount(-5)

	assert.Zero(t, counter.StorageBytes)
	assert.Zero(t, counter.DBRecordCount)
}
