package implementation

import (
	"context"
	"errors"
	"fmt"

	"ai-pdfchat-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// RedisClientStateRepositoryImpl stores client state in one Redis hash so a
// profile can follow the user across machines.
type RedisClientStateRepositoryImpl struct {
	rdb *redis.Client
	key string
}

func NewRedisClientStateRepository(rdb *redis.Client, namespace string) contract.ClientStateRepository {
	return &RedisClientStateRepositoryImpl{
		rdb: rdb,
		key: fmt.Sprintf("%s:client_state", namespace),
	}
}

// NewRedisClient parses a redis:// URL, falling back to a bare address.
func NewRedisClient(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{
			Addr: url,
		}
	}
	return redis.NewClient(opt)
}

func (r *RedisClientStateRepositoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisClientStateRepositoryImpl) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (r *RedisClientStateRepositoryImpl) Delete(ctx context.Context, key string) error {
	if err := r.rdb.HDel(ctx, r.key, key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}

func (r *RedisClientStateRepositoryImpl) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}
