package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService provides the shared Redis client used for cross-instance
// turn locks and transient state.
type RedisService struct {
	client *redis.Client
}

var (
	redisInstance *RedisService
	redisOnce     sync.Once
	redisInitErr  error
)

// GetRedisService returns the singleton client, connecting on first use.
func GetRedisService(redisURL string) (*RedisService, error) {
	redisOnce.Do(func() {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			redisInitErr = fmt.Errorf("invalid redis url: %w", err)
			return
		}

		opts.PoolSize = 10
		opts.MinIdleConns = 2
		opts.DialTimeout = 5 * time.Second
		opts.ReadTimeout = 3 * time.Second
		opts.WriteTimeout = 3 * time.Second

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			redisInitErr = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		log.Printf("✅ Redis connected")
		redisInstance = &RedisService{client: client}
	})
	return redisInstance, redisInitErr
}

// AcquireLock takes a named lock with a TTL. Returns false when another
// holder has it.
func (r *RedisService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock frees a named lock.
func (r *RedisService) ReleaseLock(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisService) Close() error { return r.client.Close() }
