package middleware

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olenev/userhub/pkg/breaker"
)

// CircuitBreakerManager holds one breaker per backend service
type CircuitBreakerManager struct {
	breakers map[string]*breaker.CircuitBreaker
	mu       sync.RWMutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*breaker.CircuitBreaker),
	}
}

// GetOrCreate returns the breaker for a service, creating it on first use
func (m *CircuitBreakerManager) GetOrCreate(serviceName string) *breaker.CircuitBreaker {
	m.mu.RLock()
	cb, exists := m.breakers[serviceName]
	m.mu.RUnlock()
	if exists {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, exists = m.breakers[serviceName]; exists {
		return cb
	}
	cb = breaker.New(serviceName, 5, 30*time.Second)
	m.breakers[serviceName] = cb
	return cb
}

// GetAllStats returns statistics for every breaker
func (m *CircuitBreakerManager) GetAllStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]interface{}, len(m.breakers))
	for name, cb := range m.breakers {
		stats[name] = cb.GetStats()
	}
	return stats
}

// CircuitBreakerMiddleware stops sending traffic to a backend that
// keeps failing. Transport errors and 5xx responses count as failures;
// client errors do not.
func CircuitBreakerMiddleware(manager *CircuitBreakerManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service := determineServiceFromPath(c.Path())
		if service == "" {
			return c.Next()
		}

		cb := manager.GetOrCreate(service)

		var nextErr error
		err := cb.Call(func() error {
			nextErr = c.Next()
			if nextErr != nil {
				return nextErr
			}
			if status := c.Response().StatusCode(); status >= fiber.StatusInternalServerError {
				return fmt.Errorf("upstream returned %d", status)
			}
			return nil
		})

		if errors.Is(err, breaker.ErrOpen) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":       "Service temporarily unavailable",
				"service":     service,
				"message":     "Circuit breaker is open, please try again later",
				"retry_after": 30,
			})
		}

		return nextErr
	}
}

// determineServiceFromPath maps a request path to its backend service
func determineServiceFromPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/"):
		return "userhub"
	case strings.HasPrefix(path, "/swagger"):
		return "userhub"
	case strings.HasPrefix(path, "/static/"):
		return "userhub"
	case strings.HasPrefix(path, "/mailer"):
		return "mailer"
	default:
		return ""
	}
}
