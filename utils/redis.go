package utils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

// InitRedis 初始化 Redis 连接；未配置地址时跳过（缓存为可选项）
func InitRedis(url, password string, db int) error {
	if url == "" {
		Log.Info("REDIS_URL not set, template pool cache disabled")
		return nil
	}

	rdb = redis.NewClient(&redis.Options{
		Addr:     url,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return err
	}

	Log.Info("Redis connected")
	return nil
}

// GetRedis 获取 Redis 客户端（可能为 nil）
func GetRedis() *redis.Client {
	return rdb
}

// CloseRedis 关闭 Redis 连接
func CloseRedis() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}
