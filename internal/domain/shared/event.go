package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	GetEventID() uuid.UUID
	GetEventType() string
	GetAggregateID() uuid.UUID
	GetOccurredAt() time.Time
}

// BaseDomainEvent provides common fields for domain events
type BaseDomainEvent struct {
	EventID     uuid.UUID
	EventType   string
	AggregateID uuid.UUID
	OccurredAt  time.Time
}

// GetEventID returns the event ID
func (e *BaseDomainEvent) GetEventID() uuid.UUID {
	return e.EventID
}

// GetEventType returns the event type
func (e *BaseDomainEvent) GetEventType() string {
	return e.EventType
}

// GetAggregateID returns the aggregate ID that produced the event
func (e *BaseDomainEvent) GetAggregateID() uuid.UUID {
	return e.AggregateID
}

// GetOccurredAt returns when the event occurred
func (e *BaseDomainEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now(),
	}
}
