// Package cache provides a Redis-backed cache of resolved rotation settings.
//
// Resolving rotation settings costs a settings read plus a theme read per
// viewer connect; channels with many kiosks connect-storm after network
// blips, so the resolved result is cached per channel and invalidated on
// every rotation update. Cache failures are logged and treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/metrics"
)

const rotationCacheTTL = 1 * time.Hour

// RotationCache caches domain.ResolvedRotation values in Redis.
type RotationCache struct {
	rdb goredis.Cmdable
}

func NewRotationCache(rdb goredis.Cmdable) *RotationCache {
	return &RotationCache{rdb: rdb}
}

func (c *RotationCache) Get(ctx context.Context, channel string) (*domain.ResolvedRotation, bool) {
	data, err := c.rdb.Get(ctx, rotationCacheKey(channel)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Rotation cache GET failed", "channel", channel, "error", err)
		}
		metrics.RotationCacheMissesTotal.Inc()
		return nil, false
	}

	var rotation domain.ResolvedRotation
	if err := json.Unmarshal(data, &rotation); err != nil {
		slog.Warn("Rotation cache entry corrupt, dropping", "channel", channel, "error", err)
		_ = c.rdb.Del(ctx, rotationCacheKey(channel)).Err()
		metrics.RotationCacheMissesTotal.Inc()
		return nil, false
	}

	metrics.RotationCacheHitsTotal.Inc()
	return &rotation, true
}

func (c *RotationCache) Set(ctx context.Context, channel string, rotation domain.ResolvedRotation) {
	encoded, err := json.Marshal(rotation)
	if err != nil {
		slog.Warn("Failed to marshal rotation for cache", "channel", channel, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, rotationCacheKey(channel), encoded, rotationCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate rotation cache", "channel", channel, "error", err)
	}
}

func (c *RotationCache) Invalidate(ctx context.Context, channel string) {
	if err := c.rdb.Del(ctx, rotationCacheKey(channel)).Err(); err != nil {
		slog.Warn("Failed to invalidate rotation cache", "channel", channel, "error", err)
	}
}

func rotationCacheKey(channel string) string {
	return fmt.Sprintf("glowcast:rotation:%s", channel)
}

// Connect creates a Redis client from a URL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
