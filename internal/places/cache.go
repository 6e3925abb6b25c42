// internal/places/cache.go
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// cacheTTL bounds how long resolver results stay valid. Town and POI data
// around a midpoint changes slowly; hours is plenty.
const cacheTTL = 6 * time.Hour

// Cache is an optional Redis-backed cache for resolver results, keyed by a
// rounded midpoint. Lookups against the external geodata APIs are slow and
// rate limited; nearby midpoints collapse onto the same key.
type Cache struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

// NewCache connects to Redis at addr and returns a cache, or an error if the
// server is unreachable. Callers treat a missing cache as "uncached".
func NewCache(addr string, db int, logger *logrus.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Cache{rdb: rdb, logger: logger}, nil
}

// get decodes a cached value into out, returning false on miss or error.
func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnf("redis get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warnf("redis decode %s: %v", key, err)
		return false
	}
	return true
}

// set stores a value best-effort; failures are logged and ignored.
func (c *Cache) set(ctx context.Context, key string, val interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		c.logger.Warnf("redis set %s: %v", key, err)
	}
}
