package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/retry"
	"github.com/aniladanir/whatsapp-messenger-service/internal/cache"
	"github.com/go-redis/redis/v8"
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and pings it up to maxAttempts times.
func NewRedisCache(ctx context.Context, addr string, maxAttempts int) (*RedisCache, error) {
	rClient := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	retrier, err := retry.New(retry.WithMaxAttemps(maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	var pingErr error
	ok := <-retrier.Retry(ctx, func(attempt int) (terminate bool) {
		pingErr = rClient.Ping(ctx).Err()
		return pingErr == nil
	}, true)
	if !ok {
		_ = rClient.Close()
		if pingErr == nil {
			pingErr = ctx.Err()
		}
		return nil, fmt.Errorf("failed to ping redis instance: %w", pingErr)
	}

	return &RedisCache{
		client: rClient,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return val, err
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
