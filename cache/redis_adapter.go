package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shaurya/grail/config"
)

// RedisAdapter implements Cache using Redis.
type RedisAdapter struct {
	Client *redis.Client
}

// Redis is the global Redis client, exposed for advanced usage.
var Redis *redis.Client

// NewRedisAdapter creates a new Redis-backed cache adapter.
func NewRedisAdapter(cfg config.RedisConfig) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("[Grail] ERROR: Invalid Redis URL %s: %v", cfg.URL, err)
	}

	opts.PoolSize = cfg.Pool
	opts.DB = cfg.DB

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("[Grail] ERROR: Cannot connect to Redis at %s: %v", cfg.URL, err)
	}

	Redis = client
	return &RedisAdapter{Client: client}, nil
}

// MustNewRedisAdapter creates a Redis adapter or panics.
func MustNewRedisAdapter(cfg config.RedisConfig) *RedisAdapter {
	adapter, err := NewRedisAdapter(cfg)
	if err != nil {
		log.Fatalf("%s", err.Error())
	}
	return adapter
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *RedisAdapter) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() (any, error)) (string, error) {
	val, err := r.Get(ctx, key)
	if err == nil {
		return val, nil
	}

	res, err := fn()
	if err != nil {
		return "", err
	}

	if err := r.Set(ctx, key, res, ttl); err != nil {
		return "", err
	}

	return fmt.Sprint(res), nil
}

func (r *RedisAdapter) Flush(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
