package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olenev/userhub/pkg/logger"
)

// StructuredLoggingMiddleware logs every request with its outcome.
// Trace and span IDs come from the request context, so entries line up
// with backend logs for the same trace.
func StructuredLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)

		logger.Debug(c.UserContext()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("request_id", requestID).
			Msg("Request started")

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
		}

		event := logger.Info(c.UserContext())
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error(c.UserContext())
		case status >= fiber.StatusBadRequest:
			event = logger.Warn(c.UserContext())
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", len(c.Response().Body())).
			Str("ip", c.IP()).
			Str("user_agent", c.Get("User-Agent")).
			Str("request_id", requestID).
			Err(err).
			Msg("Request completed")

		return err
	}
}
