package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// UsageCounter is the durable per-tenant usage state. Exactly one row
// exists per tenant; creation is idempotent via the unique tenant index.
//
// Incremental fields are written by the aggregator, absolute fields by
// the recompute path, and reset windows by whoever observes expiry
// first. Rollover writes are idempotent so the two writers may race.
type UsageCounter struct {
	shared.BaseEntity
	TenantID        uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex"`
	StorageBytes    int64     `gorm:"not null;default:0"`
	DBRecordCount   int64     `gorm:"not null;default:0"`
	APICallsToday   int64     `gorm:"not null;default:0"`
	EmailsThisMonth int64     `gorm:"not null;default:0"`
	APICallsResetAt time.Time `gorm:"not null"`
	EmailsResetAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// NewUsageCounter creates a zeroed counter with fresh reset windows
func NewUsageCounter(tenantID uuid.UUID) (*UsageCounter, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	now := time.Now()
	return &UsageCounter{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		APICallsResetAt: now.Add(24 * time.Hour),
		EmailsResetAt:   NextMonthStart(now),
	}, nil
}

// NextMonthStart returns the first instant of the calendar month after t
func NextMonthStart(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
}

// ApplyRollover zeroes any periodic counter whose window has expired
// and rolls its window forward. It returns true if anything changed,
// so callers persist only when needed.
func (c *UsageCounter) ApplyRollover(now time.Time) bool {
	changed := false

	if now.After(c.APICallsResetAt) {
		c.APICallsToday = 0
		c.APICallsResetAt = now.Add(24 * time.Hour)
		changed = true
	}

	if now.After(c.EmailsResetAt) {
		c.EmailsThisMonth = 0
		c.EmailsResetAt = NextMonthStart(now)
		changed = true
	}

	if changed {
		c.UpdatedAt = now
	}
	return changed
}

// ApplyDelta folds a net event count of one kind into the counter.
// Record deletions clamp at zero.
func (c *UsageCounter) ApplyDelta(kind UsageKind, count int64) {
	switch kind {
	case UsageKindAPICall:
		c.APICallsToday += count
	case UsageKindEmailSent:
		c.EmailsThisMonth += count
	case UsageKindRecordCreated:
		c.DBRecordCount += count
	case UsageKindRecordDeleted:
		c.DBRecordCount -= count
		if c.DBRecordCount < 0 {
			c.DBRecordCount = 0
		}
	}
	c.UpdatedAt = time.Now()
}

// SetStorageBytes replaces the storage counter with an authoritative value
func (c *UsageCounter) SetStorageBytes(bytes int64) {
	if bytes < 0 {
		bytes = 0
	}
	c.StorageBytes = bytes
	c.UpdatedAt = time.Now()
}

// SetDBRecordCount replaces the record counter with an authoritative value
func (c *UsageCounter) SetDBRecordCount(count int64) {
	if count < 0 {
		count = 0
	}
	c.DBRecordCount = count
	c.UpdatedAt = time.Now()
}
