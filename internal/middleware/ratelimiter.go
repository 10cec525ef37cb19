package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per client in fixed windows
type RateLimiter interface {
	// Allow records one request for key.
	// Returns: allowed bool, remaining int64, retryAfter time.Duration, error
	Allow(ctx context.Context, key string) (bool, int64, time.Duration, error)

	// Close releases limiter resources. A Redis limiter borrows its client,
	// which stays open for its owner.
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// RateLimiterOption configures a Redis rate limiter
type RateLimiterOption func(*redisRateLimiter)

// WithClock sets the clock used to pick the current window.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(r *redisRateLimiter) { r.now = now }
}

// NewRateLimiter creates a new Redis-based rate limiter allowing limit
// requests per window. A limit of zero or less disables limiting.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, logger *slog.Logger, opts ...RateLimiterOption) RateLimiter {
	logger.Info("✅ [RateLimiter] Using Redis rate limiter", "limit", limit, "window", window)

	limiter := &redisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// windowKey generates the Redis key for the current window
// Format: rate:auth:{key}:{window start unix}
func (r *redisRateLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	start := now.Truncate(r.window)
	return fmt.Sprintf("rate:auth:%s:%d", key, start.Unix()), start.Add(r.window)
}

func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Duration, error) {
	// If limit is 0 or negative, unlimited
	if r.limit <= 0 {
		return true, -1, 0, nil
	}

	now := r.now()
	redisKey, windowEnd := r.windowKey(key, now)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to increment request count", "error", err, "key", key)
		// On error, allow the request but log it
		return true, r.limit, 0, err
	}

	count := incr.Val()
	remaining := max(r.limit-count, 0)
	if count > r.limit {
		return false, 0, windowEnd.Sub(now), nil
	}
	return true, remaining, 0, nil
}

func (r *redisRateLimiter) Close() error {
	return nil
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - rate limiting is disabled")
	return &NoOpRateLimiter{logger: logger}
}

func (r *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Duration, error) {
	return true, -1, 0, nil
}

func (r *NoOpRateLimiter) Close() error {
	return nil
}

// RateLimit limits requests per client IP.
func RateLimit(limiter RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("⚠️ [RateLimiter] Limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		}

		if !allowed {
			seconds := int64((retryAfter + time.Second - 1) / time.Second)
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			logger.Warn("⚠️ [RateLimiter] Rate limit exceeded", "client_ip", c.ClientIP(), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}
