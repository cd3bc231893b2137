package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter backed by a shared Redis instance so blocks hold across
// server instances.
type Redis struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedis(client *redis.Client, maxAttempts int, window time.Duration) *Redis {
	return &Redis{client: client, maxAttempts: maxAttempts, window: window}
}

func (r *Redis) key(key string) string {
	return fmt.Sprintf("override_attempts:%s", key)
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := r.key(key)
	count, err := r.client.Get(ctx, k).Int()
	if err == redis.Nil {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("get attempt count: %w", err)
	}
	if count >= r.maxAttempts {
		ttl, err := r.client.TTL(ctx, k).Result()
		if err != nil {
			ttl = r.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

func (r *Redis) Failure(ctx context.Context, key string) error {
	k := r.key(key)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	return nil
}

func (r *Redis) Success(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("reset attempt count: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis at the given URL and verifies the
// connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
