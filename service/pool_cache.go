package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cleanclip/model"
	"cleanclip/utils"

	"github.com/redis/go-redis/v9"
)

// TemplatePoolCache 缓存每个业务类型的启用模板 ID 列表
type TemplatePoolCache interface {
	Get(ctx context.Context, serviceType model.ServiceType) ([]int64, bool)
	Set(ctx context.Context, serviceType model.ServiceType, ids []int64)
	Invalidate(ctx context.Context, serviceType model.ServiceType)
}

const poolCacheTTL = 10 * time.Minute

// RedisPoolCache 多实例共享的模板池缓存，失效由管理端启停模板触发
type RedisPoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPoolCache(rdb *redis.Client) *RedisPoolCache {
	return &RedisPoolCache{rdb: rdb, ttl: poolCacheTTL}
}

func poolKey(serviceType model.ServiceType) string {
	return "template_pool:" + string(serviceType)
}

func (c *RedisPoolCache) Get(ctx context.Context, serviceType model.ServiceType) ([]int64, bool) {
	raw, err := c.rdb.Get(ctx, poolKey(serviceType)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.Log.WithError(err).Warn("template pool cache read failed")
		}
		return nil, false
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		utils.Log.WithError(err).Warn("template pool cache entry corrupted")
		return nil, false
	}
	return ids, true
}

func (c *RedisPoolCache) Set(ctx context.Context, serviceType model.ServiceType, ids []int64) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, poolKey(serviceType), raw, c.ttl).Err(); err != nil {
		utils.Log.WithError(err).Warn("template pool cache write failed")
	}
}

func (c *RedisPoolCache) Invalidate(ctx context.Context, serviceType model.ServiceType) {
	if err := c.rdb.Del(ctx, poolKey(serviceType)).Err(); err != nil {
		utils.Log.WithError(err).Warn("template pool cache invalidate failed")
	}
}

// InvalidatePool 管理命令没有 ContentService，直接清理共享缓存
func (c *RedisPoolCache) InvalidatePool(ctx context.Context, serviceType model.ServiceType) {
	c.Invalidate(ctx, serviceType)
}
