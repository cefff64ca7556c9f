// Package cache 提供读路径的短 TTL 缓存抽象，Redis 实现 + 内存兜底实现。
// 缓存实例在应用启动时显式构造并按依赖注入传递，不作为权威数据源：
// 所有状态变更始终直接落在数据库上，缓存过期或不一致不影响状态机正确性。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// Store 缓存存取接口
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON 读取并反序列化 JSON 值，未命中返回 ErrMiss
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON 序列化并写入 JSON 值
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}
