package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache Redis缓存实现，值以 JSON 形式存储
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建Redis缓存
func NewRedisCache(config RedisConfig) (Cache, error) {
	client := NewRedisClient(config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, config.KeyPrefix), nil
}

// NewRedisClient 按配置构造客户端，供缓存与实时广播共用
func NewRedisClient(config RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})
}

func NewRedisCacheWithClient(client *redis.Client, prefix string) Cache {
	return &redisCache{client: client, prefix: prefix}
}

func (rc *redisCache) key(k string) string { return rc.prefix + k }

func (rc *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	raw, err := rc.client.Get(ctx, rc.key(key)).Result()
	if err != nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw, true
	}
	return value, true
}

func (rc *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rc.client.Set(ctx, rc.key(key), data, expiration).Err()
}

func (rc *redisCache) Add(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}
	ok, err := rc.client.SetNX(ctx, rc.key(key), data, expiration).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return ok, err
}

func (rc *redisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, rc.key(key)).Err()
}

func (rc *redisCache) Close() error {
	return rc.client.Close()
}
