// Package ratelimit decides whether a client may make another request. The
// token bucket keeps state in process; the Redis limiter shares a sliding
// window between replicas.
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Allow consumes one request for key and reports the resulting state
	Allow(ctx context.Context, key string) (*RateLimitInfo, error)
}

// RateLimitInfo contains information about the current rate limit state
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the rate limit window resets
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}

// RetryAfter is the whole number of seconds until ResetAt, never negative
func (i *RateLimitInfo) RetryAfter(now time.Time) int64 {
	wait := i.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	seconds := int64(wait / time.Second)
	if wait%time.Second != 0 {
		seconds++
	}
	return seconds
}
