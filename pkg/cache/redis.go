package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/pkg/logging"
)

// redisStore 基于 go-redis 的 Store 实现
type redisStore struct {
	client redis.UniversalClient
}

// NewRedis 使用已建立的 Redis 客户端创建缓存实例
func NewRedis(client redis.UniversalClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		logging.Error(ctx, "redis cache Get failed", "key", key, "error", err)
		return nil, err
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Error(ctx, "redis cache Set failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		logging.Error(ctx, "redis cache Delete failed", "keys", keys, "error", err)
		return err
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
