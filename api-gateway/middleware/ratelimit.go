package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/olenev/userhub/pkg/logger"
	"github.com/olenev/userhub/pkg/ratelimit"
)

// RateLimiter applies a sliding window limit per client at the edge
type RateLimiter struct {
	limiter *ratelimit.Limiter
	name    string
}

// NewRateLimiter creates a rate limiter backed by Redis
func NewRateLimiter(rdb redis.UniversalClient, name string, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: ratelimit.New(rdb, maxRequests, window),
		name:    name,
	}
}

// Middleware returns the Fiber handler enforcing the limit. Redis
// errors fail open so an unavailable Redis never blocks traffic.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if userID := c.Locals("user_id"); userID != nil {
			identifier = fmt.Sprintf("user:%v", userID)
		}

		key := fmt.Sprintf("ratelimit:%s:%s", rl.name, identifier)
		result, err := rl.limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limiter.Max()))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}

// GlobalRateLimiter limits all traffic through the gateway. A nil
// client disables limiting.
func GlobalRateLimiter(redisClient *redis.Client) fiber.Handler {
	if redisClient == nil {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return NewRateLimiter(redisClient, "gateway", 100, time.Minute).Middleware()
}
