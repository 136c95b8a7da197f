package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardKeyPrefix = "resolved:"

// RedisGuard remembers resolved room closes in Redis keys that expire after TTL.
type RedisGuard struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{Redis: rdb, TTL: ttl}
}

// Seen перевіряє, чи ключ ще не прострочений
func (g *RedisGuard) Seen(ctx context.Context, key string) (bool, error) {
	n, err := g.Redis.Exists(ctx, guardKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisGuard) Remember(ctx context.Context, key string) error {
	return g.Redis.Set(ctx, guardKeyPrefix+key, "1", g.TTL).Err()
}
