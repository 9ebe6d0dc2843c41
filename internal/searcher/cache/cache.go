// Package cache keeps evaluated query results in Redis, keyed by the model
// configuration and the query text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "qryeval:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. Redis failures trip a circuit breaker so a dead cache
// costs one fast failure per lookup instead of a network timeout.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return c
}

func (c *QueryCache) Get(ctx context.Context, m model.Model, query string, limit int) (*executor.Result, bool) {
	key := BuildKey(m, query, limit)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.GetBytes(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result executor.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, m model.Model, query string, limit int, result *executor.Result) {
	key := BuildKey(m, query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	}); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it.
// Concurrent misses for the same key share one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	m model.Model,
	query string,
	limit int,
	compute func() (*executor.Result, error),
) (*executor.Result, bool, error) {
	if result, ok := c.Get(ctx, m, query, limit); ok {
		return result, true, nil
	}
	key := BuildKey(m, query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, m, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.Result), false, nil
}

// Invalidate drops every cached result, e.g. after the index changes.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

// BuildKey hashes the model parameters, the whitespace-normalized query and
// the limit. Operator keywords are case-insensitive, so the query is
// lower-cased too.
func BuildKey(m model.Model, query string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("%s|%s|limit=%d", m.CacheKey(), normalized, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
