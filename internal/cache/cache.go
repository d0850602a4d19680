// Package cache provides a Redis-backed cache for reformulated query
// strings. Concurrent misses for the same query are collapsed through
// singleflight so the scoring pipeline runs once per distinct query.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/qmodel/query-modelling-service/pkg/config"
	"github.com/qmodel/query-modelling-service/pkg/logger"
	pkgredis "github.com/qmodel/query-modelling-service/pkg/redis"
)

const keyPrefix = "qmodel:reformulation:"

// ResultCache caches weighted-query strings keyed by a hash of the input
// query.
type ResultCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a ResultCache backed by the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("result-cache"),
	}
}

// Get returns the cached weighted query for the input, if present. Redis
// failures count as misses; the caller recomputes.
func (c *ResultCache) Get(ctx context.Context, query string) (string, bool) {
	key := c.buildKey(query)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return data, true
}

// Set stores a weighted query with the configured TTL. Failures are logged
// and swallowed; caching is best-effort.
func (c *ResultCache) Set(ctx context.Context, query, weighted string) {
	key := c.buildKey(query)
	if err := c.client.Set(ctx, key, weighted, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for query, or runs computeFn once
// (deduplicating concurrent callers) and caches its output. The boolean
// reports whether the value came from cache.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	query string,
	computeFn func() (string, error),
) (string, bool, error) {
	if result, ok := c.Get(ctx, query); ok {
		return result, true, nil
	}
	key := c.buildKey(query)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, query); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, result)
		return result, nil
	})
	if err != nil {
		return "", false, err
	}
	return val.(string), false, nil
}

// Invalidate removes every cached reformulation result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the query with only surrounding whitespace trimmed. Casing
// and word order stay part of the key: the capitalization feature scores the
// surface form, the response carries first-seen surface forms, and ties rank
// in input order, so reordered or re-cased queries have different correct
// outputs and must not share an entry.
func (c *ResultCache) buildKey(query string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
