package source

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/retry"
)

// Store 内存存储数据源（Redis INFO）
type Store interface {
	// Info 返回 INFO <section> 的原始文本
	Info(ctx context.Context, section string) (string, error)
	// Ping 返回一次成功 PING 的往返耗时，失败时按重试策略重连
	Ping(ctx context.Context) (time.Duration, error)
	Close() error
}

// RedisStore 基于 go-redis 的 Store
type RedisStore struct {
	name   string
	client *redis.Client
	policy retry.Policy
}

// NewRedisStore 创建 Redis 客户端。重连由 policy 控制，go-redis 自身的重试关闭。
func NewRedisStore(t config.RedisTarget, policy retry.Policy, timeout time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         t.Addr(),
		Password:     t.Password,
		DB:           t.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1,
		PoolSize:     2,
	})
	return &RedisStore{name: "redis/" + t.DisplayName(), client: client, policy: policy}
}

func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	latency, err := retry.Do(ctx, s.policy, s.name, func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		if err := s.client.Ping(ctx).Err(); err != nil {
			return 0, err
		}
		return time.Since(start), nil
	})
	return latency, upstream(s.name, err)
}

func (s *RedisStore) Info(ctx context.Context, section string) (string, error) {
	text, err := s.client.Info(ctx, section).Result()
	if err != nil {
		return "", upstream(s.name, err)
	}
	return text, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
