package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/snagtrack/snag/pkg/defects"
)

const defectKeyPrefix = "defect:"

// DefaultDefectCacheTTL bounds staleness for reads that race an
// invalidation from another instance.
const DefaultDefectCacheTTL = time.Minute

// RedisDefectCache is a best-effort read-through cache for single-defect
// lookups. Every write path invalidates the entry, so the TTL only limits
// staleness across process boundaries. Redis errors are swallowed: a
// broken cache degrades to plain store reads.
type RedisDefectCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDefectCache creates a defect cache over an existing client.
// A non-positive ttl falls back to DefaultDefectCacheTTL.
func NewRedisDefectCache(client *redis.Client, ttl time.Duration) *RedisDefectCache {
	if ttl <= 0 {
		ttl = DefaultDefectCacheTTL
	}
	return &RedisDefectCache{client: client, ttl: ttl}
}

// Get implements defects.Cache
func (c *RedisDefectCache) Get(ctx context.Context, id string) (*defects.Defect, bool) {
	data, err := c.client.Get(ctx, defectKeyPrefix+id).Result()
	if err != nil {
		return nil, false
	}

	var d defects.Defect
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		c.client.Del(ctx, defectKeyPrefix+id)
		return nil, false
	}
	return &d, true
}

// Set implements defects.Cache
func (c *RedisDefectCache) Set(ctx context.Context, d *defects.Defect) {
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	c.client.Set(ctx, defectKeyPrefix+d.ID, data, c.ttl)
}

// Invalidate implements defects.Cache
func (c *RedisDefectCache) Invalidate(ctx context.Context, id string) {
	c.client.Del(ctx, defectKeyPrefix+id)
}
