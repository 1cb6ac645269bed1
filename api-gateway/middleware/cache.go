package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/olenev/userhub/pkg/logger"
)

// CacheConfig controls what the gateway caches
type CacheConfig struct {
	TTL              time.Duration
	CacheableMethods []string
	CacheableStatus  []int
	// PathPrefixes limits caching to public routes. User-specific
	// responses must not be served from a shared cache.
	PathPrefixes []string
}

// DefaultCacheConfig returns a conservative caching policy
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              5 * time.Minute,
		CacheableMethods: []string{fiber.MethodGet, fiber.MethodHead},
		CacheableStatus:  []int{fiber.StatusOK, fiber.StatusMovedPermanently, fiber.StatusNotFound},
		PathPrefixes:     []string{"/api/healthchecker", "/swagger/", "/static/"},
	}
}

type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// CacheMiddleware serves repeated requests to public routes from
// Redis. A nil client disables caching entirely.
func CacheMiddleware(redisClient *redis.Client, config CacheConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redisClient == nil {
			return c.Next()
		}

		if !isCacheable(c, config) {
			return c.Next()
		}

		key := cacheKey(c)
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if raw, err := redisClient.Get(ctx, key).Bytes(); err == nil {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.Set("X-Cache", "HIT")
				if cached.ContentType != "" {
					c.Set(fiber.HeaderContentType, cached.ContentType)
				}
				return c.Status(cached.StatusCode).Send(cached.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if !statusCacheable(status, config.CacheableStatus) {
			return nil
		}

		cached := cachedResponse{
			StatusCode:  status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        c.Response().Body(),
		}
		raw, err := json.Marshal(cached)
		if err != nil {
			return nil
		}

		if err := redisClient.Set(ctx, key, raw, config.TTL).Err(); err != nil {
			logger.Logger.Debug().Err(err).Str("key", key).Msg("Failed to store response in cache")
			return nil
		}
		c.Set("X-Cache", "MISS")
		return nil
	}
}

func isCacheable(c *fiber.Ctx, config CacheConfig) bool {
	method := c.Method()
	methodOK := false
	for _, m := range config.CacheableMethods {
		if m == method {
			methodOK = true
			break
		}
	}
	if !methodOK {
		return false
	}

	path := c.Path()
	for _, prefix := range config.PathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func statusCacheable(status int, cacheable []int) bool {
	for _, s := range cacheable {
		if s == status {
			return true
		}
	}
	return false
}

// cacheKey hashes method, path, query and auth header so distinct
// requests never collide on one entry.
func cacheKey(c *fiber.Ctx) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%s:%s:%s",
		c.Method(),
		c.Path(),
		string(c.Request().URI().QueryString()),
		c.Get("Authorization"),
	)
	return fmt.Sprintf("cache:%x", h.Sum(nil))
}
