package billing

import (
	"time"

	"github.com/google/uuid"
)

// UsageKind identifies the kind of usage event reported by request handlers
type UsageKind string

const (
	UsageKindAPICall       UsageKind = "api_call"
	UsageKindEmailSent     UsageKind = "email_sent"
	UsageKindRecordCreated UsageKind = "record_created"
	UsageKindRecordDeleted UsageKind = "record_deleted"
)

// IsValid returns true if the kind is a known value
func (k UsageKind) IsValid() bool {
	switch k {
	case UsageKindAPICall, UsageKindEmailSent, UsageKindRecordCreated, UsageKindRecordDeleted:
		return true
	}
	return false
}

// String returns the string representation of the kind
func (k UsageKind) String() string {
	return string(k)
}

// Delta returns the signed counter change one event of this kind contributes
func (k UsageKind) Delta() int64 {
	if k == UsageKindRecordDeleted {
		return -1
	}
	return 1
}

// UsageEvent is a single usage occurrence reported by a request handler.
// Events are buffered in memory and folded into counters by the aggregator.
type UsageEvent struct {
	TenantID   uuid.UUID
	Kind       UsageKind
	OccurredAt time.Time
}

// NewUsageEvent creates a usage event stamped with the current time
func NewUsageEvent(tenantID uuid.UUID, kind UsageKind) UsageEvent {
	return UsageEvent{
		TenantID:   tenantID,
		Kind:       kind,
		OccurredAt: time.Now(),
	}
}
