package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// InMemorySummaryCache is a process-local summary cache for single
// instance deployments and tests
type InMemorySummaryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]summaryEntry
	ttl     time.Duration
	now     func() time.Time
}

type summaryEntry struct {
	summary   *appbilling.UsageSummaryDTO
	expiresAt time.Time
}

var _ appbilling.SummaryCache = (*InMemorySummaryCache)(nil)

// NewInMemorySummaryCache creates a cache with the given TTL.
// A zero ttl falls back to one minute.
func NewInMemorySummaryCache(ttl time.Duration) *InMemorySummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &InMemorySummaryCache{
		entries: make(map[uuid.UUID]summaryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached summary for the tenant, or shared.ErrNotFound
// when missing or expired
func (c *InMemorySummaryCache) Get(_ context.Context, tenantID uuid.UUID) (*appbilling.UsageSummaryDTO, error) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if !ok {
		return nil, shared.ErrNotFound
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, tenantID)
		c.mu.Unlock()
		return nil, shared.ErrNotFound
	}
	return entry.summary, nil
}

// Set stores the summary with the configured TTL
func (c *InMemorySummaryCache) Set(_ context.Context, tenantID uuid.UUID, summary *appbilling.UsageSummaryDTO) error {
	c.mu.Lock()
	c.entries[tenantID] = summaryEntry{
		summary:   summary,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cached summary for a tenant
func (c *InMemorySummaryCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
	return nil
}
