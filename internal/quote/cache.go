package quote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/iaros/freightquote/internal/logging"
)

// ResultCache memoises a calculate response by its fingerprint. Redis is
// the primary store; an in-process patrickmn/go-cache instance serves
// reads and writes whenever Redis is unreachable so "cache unavailability
// must never block request processing" (spec.md §4.8) holds even under a
// Redis outage, not just under a cache miss.
type ResultCache struct {
	redis   *redis.Client
	local   *cache.Cache
	ttl     time.Duration
	log     *logging.Logger
}

// NewResultCache builds a ResultCache. ttl is applied to both tiers.
func NewResultCache(rdb *redis.Client, ttl time.Duration, log *logging.Logger) *ResultCache {
	return &ResultCache{
		redis: rdb,
		local: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		log:   log,
	}
}

// Get fetches a cached response by fingerprint. Any Redis error is logged
// and treated as a miss, falling through to the local tier.
func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*Response, bool) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, fingerprint).Bytes()
		if err == nil {
			var resp Response
			if jsonErr := json.Unmarshal(data, &resp); jsonErr == nil {
				c.log.CacheLogger("get", fingerprint, true)
				return &resp, true
			}
		} else if err != redis.Nil {
			c.log.Warn("redis cache get failed, falling back to local cache")
		}
	}

	if v, ok := c.local.Get(fingerprint); ok {
		resp, ok := v.(*Response)
		c.log.CacheLogger("get", fingerprint, ok)
		return resp, ok
	}
	c.log.CacheLogger("get", fingerprint, false)
	return nil, false
}

// Set writes a response to both cache tiers with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, fingerprint string, resp *Response) {
	c.local.Set(fingerprint, resp, c.ttl)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Warn("failed to marshal response for redis cache")
		return
	}
	if err := c.redis.Set(ctx, fingerprint, data, c.ttl).Err(); err != nil {
		c.log.Warn("redis cache set failed")
	}
}

// InvalidateAll flushes every cached calculate result, called whenever a
// carrier's verification/approval status flips (spec.md §4.8/§9).
func (c *ResultCache) InvalidateAll(ctx context.Context) {
	c.local.Flush()
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, "calc:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("redis scan failed during cache invalidation")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("redis del failed during cache invalidation")
	}
}
