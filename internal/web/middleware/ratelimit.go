package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/web/ratelimit"
	"github.com/conduit-lang/scaffold/internal/web/response"
)

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	Limiter ratelimit.RateLimiter
	// KeyFunc extracts the rate limit key from the request
	KeyFunc RateLimitKeyFunc
	// SkipPaths are never limited
	SkipPaths []string
	// FailOpen admits requests when the limiter itself fails
	FailOpen bool
	Logger   *zap.Logger
}

// RateLimitKeyFunc extracts a rate limit key from a request
type RateLimitKeyFunc func(*http.Request) string

// RateLimit limits each client IP with limiter, failing open
func RateLimit(limiter ratelimit.RateLimiter, logger *zap.Logger) Middleware {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter:  limiter,
		KeyFunc:  IPKeyFunc,
		FailOpen: true,
		Logger:   logger,
	})
}

// RateLimitWithConfig creates a rate limiting middleware with custom configuration
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = IPKeyFunc
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				Logger(r.Context(), logger).Error("rate limit check failed", zap.Error(err))
				if config.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				response.JSON(w, http.StatusServiceUnavailable, &response.ErrorResponse{
					Error:   "service_unavailable",
					Message: "Rate limit check failed",
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(info.RetryAfter(time.Now()), 10))
				response.JSON(w, http.StatusTooManyRequests, &response.ErrorResponse{
					Error:   "rate_limited",
					Message: "Rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc extracts the IP address from the request
// Checks X-Forwarded-For header first, then falls back to RemoteAddr
func IPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
