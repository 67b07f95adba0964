package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"venuehub/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis     *redis.Client
	Requests  int           // Number of requests allowed
	Window    time.Duration // Time window
	KeyPrefix string        // Redis key prefix
	SkipPaths []string      // Paths to skip rate limiting
}

// RateLimiter provides fixed-window rate limiting backed by redis. Each
// client gets one counter per window; the counter key carries the window
// start so old windows age out via TTL.
type RateLimiter struct {
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.Requests <= 0 {
		config.Requests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{config: config}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.config.Redis == nil || rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.key(c)
		count, resetTime, err := rl.increment(c.Request.Context(), key)
		if err != nil {
			// Redis being down must not take the API with it.
			logrus.Errorf("Rate limit check failed: %v", err)
			c.Next()
			return
		}

		remaining := rl.config.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if count > rl.config.Requests {
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "RATE_LIMIT_EXCEEDED",
				Message: "Too many requests, please try again later",
				Code:    "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

func (rl *RateLimiter) increment(ctx context.Context, key string) (int, time.Time, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	windowKey := key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	pipe := rl.config.Redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	return int(incr.Val()), windowStart.Add(rl.config.Window), nil
}

// key prefers the authenticated user over the client address so NATed
// clients do not share a bucket once logged in.
func (rl *RateLimiter) key(c *gin.Context) string {
	if userID, ok := GetCurrentUserID(c); ok {
		return rl.config.KeyPrefix + ":user:" + userID
	}
	return rl.config.KeyPrefix + ":ip:" + c.ClientIP()
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, skip := range rl.config.SkipPaths {
		if path == skip {
			return true
		}
	}
	return false
}
