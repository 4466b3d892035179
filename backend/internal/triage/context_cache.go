package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cozy-triage/backend/pkg/logger"
)

const (
	contextKeyPrefix = "triagectx:"
	contextCacheTTL  = 60 * time.Second
)

// ContextCache is a short-TTL Redis cache of gathered owner context.
// Concurrent gathers for the same owner are collapsed into one store
// round-trip via singleflight. Cache failures never fail a triage run; they
// fall through to the loader.
type ContextCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewContextCache connects to Redis and verifies the connection
func NewContextCache(redisURL string) (*ContextCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewContextCacheWithClient(client), nil
}

// NewContextCacheWithClient creates a cache from an existing Redis client
func NewContextCacheWithClient(client *redis.Client) *ContextCache {
	return &ContextCache{
		client: client,
		ttl:    contextCacheTTL,
		logger: logger.Get(),
	}
}

// Get returns the cached context for an owner, loading and caching it on
// miss. Loader errors propagate; cache read/write errors are logged and
// absorbed.
func (c *ContextCache) Get(ctx context.Context, userID string, load func() (Context, error)) (Context, error) {
	key := contextKeyPrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var tctx Context
		if err := json.Unmarshal(data, &tctx); err == nil {
			return tctx, nil
		}
		c.logger.Warn("Corrupt context cache entry, reloading", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("Context cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		tctx, err := load()
		if err != nil {
			return Context{}, err
		}
		if data, err := json.Marshal(tctx); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("Context cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return tctx, nil
	})
	if err != nil {
		return Context{}, err
	}
	return value.(Context), nil
}

// Invalidate drops the cached context for an owner, called after applied
// suggestions change the owner's projects, areas, or next actions
func (c *ContextCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, contextKeyPrefix+userID).Err(); err != nil {
		c.logger.Warn("Context cache invalidation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// Close releases the Redis client
func (c *ContextCache) Close() error {
	return c.client.Close()
}
