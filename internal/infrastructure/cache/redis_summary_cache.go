package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appbilling "github.com/pathsix/crm-backend/internal/application/billing"
	"github.com/pathsix/crm-backend/internal/domain/shared"
	"github.com/pathsix/crm-backend/internal/infrastructure/config"
)

// RedisSummaryCache caches rendered usage summaries in Redis so the
// account dashboard can poll without hitting the counter tables.
// Suitable for distributed deployments where multiple instances share
// the cache.
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ appbilling.SummaryCache = (*RedisSummaryCache)(nil)

// NewRedisClient creates a Redis client from configuration and verifies
// the connection
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisSummaryCache creates a cache with an existing Redis client.
// A zero ttl falls back to one minute.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisSummaryCache{
		client:    client,
		keyPrefix: "usage:summary:",
		ttl:       ttl,
	}
}

func (c *RedisSummaryCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get returns the cached summary for the tenant, or shared.ErrNotFound
// on a miss
func (c *RedisSummaryCache) Get(ctx context.Context, tenantID uuid.UUID) (*appbilling.UsageSummaryDTO, error) {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary cache: %w", err)
	}

	var summary appbilling.UsageSummaryDTO
	if err := json.Unmarshal(data, &summary); err != nil {
		// A corrupt entry behaves like a miss so the caller re-renders
		return nil, shared.ErrNotFound
	}
	return &summary, nil
}

// Set stores the summary with the configured TTL
func (c *RedisSummaryCache) Set(ctx context.Context, tenantID uuid.UUID, summary *appbilling.UsageSummaryDTO) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a tenant, used after plan
// changes so the dashboard reflects new limits immediately
func (c *RedisSummaryCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.client.Del(ctx, c.key(tenantID)).Err()
}
