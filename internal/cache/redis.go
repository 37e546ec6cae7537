package cache

import (
	"Lynx-Backend/internal/config"
	"Lynx-Backend/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "link:"

// LinkCache is a Redis cache-aside layer for hot short-code lookups on the
// redirect path. A nil *LinkCache is valid and behaves as an always-miss
// cache, so the rest of the code does not branch on whether caching is
// enabled. Cache failures degrade to datastore reads, never to errors.
type LinkCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg *config.Redis, log *zap.Logger) (*LinkCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return &LinkCache{
		client: client,
		ttl:    cfg.TTL,
		log:    log,
	}, nil
}

// Get returns the cached link for a code, or a miss.
func (c *LinkCache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	if c == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis get failed", zap.String("short_code", code), zap.Error(err))
		}
		return nil, false
	}

	var link domain.Link
	if err := json.Unmarshal(payload, &link); err != nil {
		c.log.Warn("dropping undecodable cache entry", zap.String("short_code", code), zap.Error(err))
		c.Invalidate(ctx, code)
		return nil, false
	}
	return &link, true
}

// Set stores the link under its short code.
func (c *LinkCache) Set(ctx context.Context, link *domain.Link) {
	if c == nil {
		return
	}

	payload, err := json.Marshal(link)
	if err != nil {
		c.log.Warn("failed to encode link for cache", zap.String("short_code", link.ShortCode), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+link.ShortCode, payload, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
}

// Invalidate drops the cached entry for a code. Called on delete, update and
// deactivation so stale destinations stop being served within one request.
func (c *LinkCache) Invalidate(ctx context.Context, code string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+code).Err(); err != nil {
		c.log.Warn("redis del failed", zap.String("short_code", code), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
