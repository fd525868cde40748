// internal/service/intelligence/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"promo-intelligence/internal/pkg/redis"
)

const cacheKeyPrefix = "intelligence:analysis:"

// RedisAnalysisCache 每个场馆一个 hash，field 为分析类型，整体设置 TTL。
// 自动发布后删除整个 hash 即可让该场馆的所有分析失效。
type RedisAnalysisCache struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewRedisAnalysisCache(client *redis.Client, ttl time.Duration) *RedisAnalysisCache {
	return &RedisAnalysisCache{rdb: client.GetClient(), ttl: ttl}
}

func cacheKey(venueID string) string {
	return cacheKeyPrefix + venueID
}

// Get 未命中时返回 false, nil
func (c *RedisAnalysisCache) Get(ctx context.Context, venueID, kind string, dest interface{}) (bool, error) {
	raw, err := c.rdb.HGet(ctx, cacheKey(venueID), kind).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read cache %s/%s", venueID, kind)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(err, "decode cache %s/%s", venueID, kind)
	}
	return true, nil
}

func (c *RedisAnalysisCache) Set(ctx context.Context, venueID, kind string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode cache %s/%s", venueID, kind)
	}
	key := cacheKey(venueID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, kind, raw)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "write cache %s/%s", venueID, kind)
	}
	return nil
}

func (c *RedisAnalysisCache) Invalidate(ctx context.Context, venueID string) error {
	if err := c.rdb.Del(ctx, cacheKey(venueID)).Err(); err != nil {
		return errors.Wrapf(err, "invalidate cache %s", venueID)
	}
	return nil
}
