package mailer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/logger"
)

// Sender delivers a single verification email
type Sender interface {
	SendVerification(ctx context.Context, email, username, baseURL string) error
}

// Dispatcher queues verification emails for delivery without blocking
// the HTTP request that triggered them.
type Dispatcher interface {
	DispatchVerification(ctx context.Context, email, username, baseURL string) error
}

// EmailPublisher is the slice of the Kafka publisher the dispatcher needs
type EmailPublisher interface {
	PublishEmailRequested(ctx context.Context, event kafka.EmailRequestedEvent) error
}

// KafkaDispatcher hands email requests to the mailer worker via Kafka
type KafkaDispatcher struct {
	publisher EmailPublisher
}

// NewKafkaDispatcher creates a dispatcher backed by the event pipeline
func NewKafkaDispatcher(publisher EmailPublisher) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher}
}

// DispatchVerification publishes an email request event
func (d *KafkaDispatcher) DispatchVerification(ctx context.Context, email, username, baseURL string) error {
	return d.publisher.PublishEmailRequested(ctx, kafka.EmailRequestedEvent{
		Kind:     kafka.EmailKindVerification,
		Email:    email,
		Username: username,
		BaseURL:  baseURL,
	})
}

// DirectDispatcher sends emails from the API process itself. It is the
// fallback when no Kafka brokers are configured.
type DirectDispatcher struct {
	sender  Sender
	timeout time.Duration
}

// NewDirectDispatcher creates an in-process dispatcher
func NewDirectDispatcher(sender Sender) *DirectDispatcher {
	return &DirectDispatcher{
		sender:  sender,
		timeout: 30 * time.Second,
	}
}

// DispatchVerification sends the email on a background goroutine. The
// send gets its own deadline; the request context is only kept as the
// trace parent so the delivery shows up in the same trace.
func (d *DirectDispatcher) DispatchVerification(ctx context.Context, email, username, baseURL string) error {
	sendCtx := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))

	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, d.timeout)
		defer cancel()

		if err := d.sender.SendVerification(sendCtx, email, username, baseURL); err != nil {
			logger.Error(sendCtx).
				Err(err).
				Msg("Failed to send verification email")
		}
	}()

	return nil
}
