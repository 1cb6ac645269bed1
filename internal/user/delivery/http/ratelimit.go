package http

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/olenev/userhub/pkg/logger"
	"github.com/olenev/userhub/pkg/ratelimit"
)

// RateLimiter enforces a sliding window request budget per client IP.
// When Redis is unreachable requests pass through; the API degrades to
// unlimited rather than failing closed.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	name    string
}

// NewRateLimiter creates a new rate limiter. The name namespaces the
// Redis keys so stacked limiters count independently.
func NewRateLimiter(redisClient redis.UniversalClient, name string, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: ratelimit.New(redisClient, maxRequests, window),
		name:    name,
	}
}

// Middleware enforces the limit on every request
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.serve(next, w, r)
	})
}

// Scoped enforces the limit only for paths under the given prefix
func (rl *RateLimiter) Scoped(prefix string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
			rl.serve(next, w, r)
		})
	}
}

func (rl *RateLimiter) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	identifier := clientIP(r)

	key := fmt.Sprintf("ratelimit:%s:%s", rl.name, identifier)
	result, err := rl.limiter.Allow(r.Context(), key)
	if err != nil {
		logger.Error(r.Context()).
			Err(err).
			Str("identifier", identifier).
			Msg("Rate limiter error")
		// On error, allow request but log it
		next.ServeHTTP(w, r)
		return
	}

	// Set rate limit headers
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limiter.Max()))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

	if !result.Allowed {
		logger.Warn(r.Context()).
			Str("identifier", identifier).
			Int("limit", rl.limiter.Max()).
			Msg("Rate limit exceeded")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":       "Rate limit exceeded",
			"message":     fmt.Sprintf("Too many requests. Try again in %v", time.Until(result.Reset).Round(time.Second)),
			"retry_after": time.Until(result.Reset).Seconds(),
		})
		return
	}

	next.ServeHTTP(w, r)
}

// clientIP extracts the caller address, honoring proxy headers
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client
		if i := strings.Index(fwd, ","); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
