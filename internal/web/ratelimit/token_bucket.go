package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements an in-memory token bucket rate limiter. Each key
// holds up to Capacity tokens, refilled at Capacity per RefillRate.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
	cleanup    *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for the token bucket rate limiter
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens in the bucket
	Capacity int
	// RefillRate is the time it takes to refill an empty bucket
	RefillRate time.Duration
	// CleanupInterval is how often idle buckets are dropped, 0 disables it
	CleanupInterval time.Duration
}

// DefaultTokenBucketConfig allows 100 requests per minute
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{
		Capacity:        100,
		RefillRate:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewTokenBucket creates a new token bucket rate limiter with default configuration
func NewTokenBucket() *TokenBucket {
	return NewTokenBucketWithConfig(DefaultTokenBucketConfig())
}

// NewTokenBucketWithConfig creates a new token bucket rate limiter with custom configuration
func NewTokenBucketWithConfig(config TokenBucketConfig) *TokenBucket {
	defaults := DefaultTokenBucketConfig()
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if config.RefillRate <= 0 {
		config.RefillRate = defaults.RefillRate
	}

	tb := &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   config.Capacity,
		refillRate: config.RefillRate,
		done:       make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}

	return tb
}

// Allow checks if a request should be allowed for the given key
func (tb *TokenBucket) Allow(_ context.Context, key string) (*RateLimitInfo, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()

	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		tokensToAdd := int(float64(tb.capacity) * elapsed.Seconds() / tb.refillRate.Seconds())
		if tokensToAdd > 0 {
			b.tokens = min(tb.capacity, b.tokens+tokensToAdd)
			b.lastRefill = now
		}
	}

	info := &RateLimitInfo{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.refillRate),
	}
	if b.tokens > 0 {
		b.tokens--
		info.Remaining = b.tokens
		info.Allowed = true
	}
	return info, nil
}

// cleanupLoop removes old buckets that haven't been used recently
func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.cleanupOldBuckets(time.Now())
		case <-tb.done:
			return
		}
	}
}

// cleanupOldBuckets removes buckets idle for more than twice the refill rate
func (tb *TokenBucket) cleanupOldBuckets(now time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := 2 * tb.refillRate
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > threshold {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}
