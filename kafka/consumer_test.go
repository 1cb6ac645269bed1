package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olenev/userhub/pkg/logger"
)

func init() {
	logger.Init("kafka-test", "test", "error")
}

func message(t *testing.T, eventType string, event interface{}) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{
		Topic: TopicEmailRequests,
		Value: value,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("event_id"), Value: []byte("ev-1")},
		},
	}
}

func testGroupHandler(handlers map[string]EventHandler) *consumerGroupHandler {
	return &consumerGroupHandler{consumer: &Consumer{handlers: handlers}}
}

func TestHandleMessageDeliversToHandler(t *testing.T) {
	var got EmailRequestedEvent
	h := testGroupHandler(map[string]EventHandler{
		EventTypeEmailRequested: func(_ context.Context, event EmailRequestedEvent) error {
			got = event
			return nil
		},
	})

	event := EmailRequestedEvent{EventID: "ev-1", Kind: EmailKindVerification, Email: "deadpool@example.com"}
	err := h.handleMessage(context.Background(), message(t, EventTypeEmailRequested, event))
	require.NoError(t, err)
	assert.Equal(t, "deadpool@example.com", got.Email)
	assert.Equal(t, EmailKindVerification, got.Kind)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	// Failed deliveries must surface so the offset stays uncommitted
	errSMTP := errors.New("smtp down")
	h := testGroupHandler(map[string]EventHandler{
		EventTypeEmailRequested: func(context.Context, EmailRequestedEvent) error { return errSMTP },
	})

	err := h.handleMessage(context.Background(), message(t, EventTypeEmailRequested, EmailRequestedEvent{}))
	assert.ErrorIs(t, err, errSMTP)
}

func TestHandleMessageDropsPoisonMessages(t *testing.T) {
	h := testGroupHandler(map[string]EventHandler{
		EventTypeEmailRequested: func(context.Context, EmailRequestedEvent) error {
			t.Error("handler must not run for malformed messages")
			return nil
		},
	})

	// Garbage payloads return nil so they are marked and never redelivered
	malformed := message(t, EventTypeEmailRequested, nil)
	malformed.Value = []byte("{not json")
	assert.NoError(t, h.handleMessage(context.Background(), malformed))

	noType := message(t, EventTypeEmailRequested, EmailRequestedEvent{})
	noType.Headers = nil
	assert.NoError(t, h.handleMessage(context.Background(), noType))

	assert.NoError(t, h.handleMessage(context.Background(), message(t, "user.exported", EmailRequestedEvent{})))
}
