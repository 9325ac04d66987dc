package ratecounter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter backs the throttle counters with Redis so multiple instances
// share the same windows. Each increment runs INCR + EXPIRE NX + TTL in a
// single transactional pipeline: the expiry is only stamped by whichever
// request opens the window, and the TTL doubles as the retry-after hint.
type RedisCounter struct {
	client *redis.Client
}

// RedisConfig carries connection settings for the counter backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(cfg RedisConfig) (*RedisCounter, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCounter{client: client}, nil
}

func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis increment failed: %w", err)
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		// Key had no expiry (e.g. flushed mid-flight); fall back to the window.
		retryAfter = window
	}

	return incr.Val(), retryAfter, nil
}

func (c *RedisCounter) Close() error { return c.client.Close() }
