package middleware

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span for each request and injects
// the trace context into the forwarded headers so backend spans become
// children of the gateway span.
func TracingMiddleware() fiber.Handler {
	tracer := otel.Tracer("api-gateway")
	propagator := otel.GetTextMapPropagator()

	return func(c *fiber.Ctx) error {
		incoming := make(http.Header)
		c.Request().Header.VisitAll(func(key, value []byte) {
			incoming.Add(string(key), string(value))
		})
		ctx := propagator.Extract(c.UserContext(), propagation.HeaderCarrier(incoming))

		spanName := fmt.Sprintf("%s %s", c.Method(), c.Path())
		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.host", c.Hostname()),
				attribute.String("http.scheme", c.Protocol()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
				attribute.String("net.peer.ip", c.IP()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)

		outgoing := make(http.Header)
		propagator.Inject(ctx, propagation.HeaderCarrier(outgoing))
		for key, values := range outgoing {
			for _, value := range values {
				c.Request().Header.Set(key, value)
			}
		}

		if span.SpanContext().HasTraceID() {
			c.Set("X-Trace-Id", span.SpanContext().TraceID().String())
		}

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		default:
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
