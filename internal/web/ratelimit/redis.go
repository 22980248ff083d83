package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, then admits the request if there is room.
// Members are unique so concurrent requests in the same nanosecond all count.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('EXPIRE', key, ttl)
		return {1, current + 1}
	end
	return {0, current}
`)

// RedisRateLimiter implements a Redis-backed sliding window rate limiter
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

// RedisRateLimiterConfig holds configuration for the Redis rate limiter
type RedisRateLimiterConfig struct {
	Client redis.UniversalClient
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Window is the time window for rate limiting
	Window time.Duration
	// Prefix is the key prefix for Redis keys
	Prefix string
}

// DefaultRedisRateLimiterConfig allows 100 requests per minute
func DefaultRedisRateLimiterConfig(client redis.UniversalClient) RedisRateLimiterConfig {
	return RedisRateLimiterConfig{
		Client: client,
		Limit:  100,
		Window: time.Minute,
		Prefix: "ratelimit:",
	}
}

// NewRedisRateLimiter creates a new Redis rate limiter with custom configuration
func NewRedisRateLimiter(config RedisRateLimiterConfig) (*RedisRateLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisRateLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
	}, nil
}

// Allow checks if a request should be allowed for the given key using sliding window
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitInfo, error) {
	now := time.Now()

	// EXPIRE takes whole seconds and deletes the key at 0
	ttl := int64((r.window + time.Second - 1) / time.Second)

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		now.Add(-r.window).UnixNano(),
		r.limit,
		ttl,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return nil, errors.New("unexpected redis script result")
	}

	remaining := r.limit - int(result[1])
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitInfo{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.window),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
