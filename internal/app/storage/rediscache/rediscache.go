// Package rediscache caches available-item listings in redis. The cache is
// strictly best-effort: every failure is logged and treated as a miss, so a
// redis outage only costs latency.
package rediscache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/pkg/logger"
)

const keyPrefix = "rewear:listings:"

// Cache implements the item service's ListingCache over redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New constructs a listing cache. TTL defaults to one minute.
func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = logger.NewDefault("rediscache")
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func cacheKey(f item.Filter) string {
	parts := []string{string(f.Category), f.Size, string(f.Condition), strings.ToLower(f.Search)}
	return keyPrefix + strings.Join(parts, "|")
}

// GetListing returns the cached listing for the filter, if present.
func (c *Cache) GetListing(ctx context.Context, f item.Filter) ([]item.Item, bool) {
	raw, err := c.client.Get(ctx, cacheKey(f)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).Debug("listing cache read failed")
		return nil, false
	}
	var items []item.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.WithError(err).Warn("listing cache entry corrupt, dropping")
		c.client.Del(ctx, cacheKey(f))
		return nil, false
	}
	return items, true
}

// PutListing stores the listing for the filter.
func (c *Cache) PutListing(ctx context.Context, f item.Filter, items []item.Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(f), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("listing cache write failed")
	}
}

// Invalidate drops every cached listing. Called whenever any item changes
// status, so stale availability never outlives a transaction.
func (c *Cache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Debug("listing cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.WithError(err).Debug("listing cache invalidation failed")
		}
	}
}
