/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package distance resolves travel distance and ETA between locations,
// with a redis cache in front of the routing provider and a coarse
// haversine fallback when the provider is unavailable.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/geo"
)

// DefaultEstimateTTL bounds how long a cached estimate stays valid. Traffic
// conditions drift, so estimates are also bucketed by time (see cacheKey).
const DefaultEstimateTTL = 15 * time.Minute

// keyEstimate prefixes estimate keys in redis.
const keyEstimate = "fieldline:cache:estimate:"

// CacheConfig contains cache configuration.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EstimateTTL time.Duration

	// DisableOnError trips the circuit breaker on the first redis failure.
	DisableOnError bool
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RedisAddr:      "localhost:6379",
		EstimateTTL:    DefaultEstimateTTL,
		DisableOnError: true,
	}
}

// Cache is a redis-backed estimate cache with graceful fallback: when redis
// is unreachable the cache runs disabled and every lookup misses. Writes are
// idempotent, so concurrent re-computation of the same key is harmless.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config CacheConfig

	mu       sync.RWMutex
	disabled bool
}

// NewCache creates a cache instance. An unreachable redis is not an error;
// the returned cache simply never hits.
func NewCache(cfg CacheConfig, logger zerolog.Logger) (*Cache, error) {
	if cfg.EstimateTTL <= 0 {
		cfg.EstimateTTL = DefaultEstimateTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis estimate cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "distance_cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis estimate cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "distance_cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling estimate cache due to redis error")
	}
}

// GetEstimate retrieves a cached estimate for the pair at the given instant.
func (c *Cache) GetEstimate(ctx context.Context, origin, dest geo.Location, now time.Time) (Estimate, bool) {
	if !c.IsAvailable() {
		return Estimate{}, false
	}

	data, err := c.client.Get(ctx, cacheKey(origin, dest, now, c.config.EstimateTTL)).Bytes()
	if err == redis.Nil {
		return Estimate{}, false
	}
	if err != nil {
		c.handleError(err, "get")
		return Estimate{}, false
	}

	var est Estimate
	if err := json.Unmarshal(data, &est); err != nil {
		c.logger.Debug().Err(err).Msg("failed to unmarshal cached estimate")
		return Estimate{}, false
	}
	return est, true
}

// SetEstimate caches an estimate for the pair.
func (c *Cache) SetEstimate(ctx context.Context, origin, dest geo.Location, now time.Time, est Estimate) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("marshal estimate: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(origin, dest, now, c.config.EstimateTTL), data, c.config.EstimateTTL).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

// cacheKey buckets coordinates to ~100m precision and time to the TTL so
// nearby requests within one bucket share an entry.
func cacheKey(origin, dest geo.Location, now time.Time, ttl time.Duration) string {
	bucket := now.UTC().Unix() / int64(ttl.Seconds())
	return fmt.Sprintf("%s%.3f,%.3f:%.3f,%.3f:%d",
		keyEstimate, origin.Lat, origin.Lon, dest.Lat, dest.Lon, bucket)
}
