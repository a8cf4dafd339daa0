package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements fixed-window rate limiting backed by Redis,
// so limits hold across multiple API instances. Counters live under the raw
// key with a TTL equal to the window.
type RedisRateLimitStore struct {
	client *redis.Client
}

// NewRedisRateLimitStore creates a new Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// Allow checks and consumes one request for the key. It returns whether the
// request is allowed, how many requests remain in the current window, and the
// seconds until the window resets when blocked.
//
// On Redis errors the store fails open: an unreachable Redis must not take
// the API down with it.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, retryAfter int) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = config.WindowDuration
	}
	retryAfter = int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

// redisStoreAdapter narrows RedisRateLimitStore to the RateLimitStore
// interface used by the RateLimiter middleware.
type redisStoreAdapter struct {
	store *RedisRateLimitStore
}

func (a redisStoreAdapter) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	allowed, _, retryAfter := a.store.Allow(ctx, key, config)
	return allowed, retryAfter
}

// NewRedisRateLimitAdapter wraps a RedisRateLimitStore as a RateLimitStore.
func NewRedisRateLimitAdapter(store *RedisRateLimitStore) RateLimitStore {
	return redisStoreAdapter{store: store}
}
