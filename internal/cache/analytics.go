// Package cache holds the Redis-backed analytics cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/upb/tradedesk/config"
	"github.com/upb/tradedesk/models"
)

const analyticsKey = "tradedesk:analytics:platform"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// AnalyticsCache stores one platform analytics snapshot with a TTL
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache creates a cache over client
func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot. A miss is (nil, false, nil).
func (c *AnalyticsCache) Get(ctx context.Context) (*models.PlatformAnalytics, bool, error) {
	data, err := c.client.Get(ctx, analyticsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var a models.PlatformAnalytics
	if err := json.Unmarshal(data, &a); err != nil {
		// drop the corrupt entry so the next read recomputes
		c.client.Del(ctx, analyticsKey)
		return nil, false, fmt.Errorf("failed to unmarshal analytics: %w", err)
	}
	return &a, true, nil
}

// Set stores a snapshot for the configured TTL
func (c *AnalyticsCache) Set(ctx context.Context, a *models.PlatformAnalytics) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics: %w", err)
	}
	if err := c.client.Set(ctx, analyticsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate removes the cached snapshot
func (c *AnalyticsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, analyticsKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
