package kafka

import "time"

// EmailRequestedEvent asks the mailer to send one email to a user
type EmailRequestedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	BaseURL   string    `json:"base_url"`
	Timestamp time.Time `json:"timestamp"`
}

// UserRegisteredEvent announces a new account to downstream consumers
type UserRegisteredEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeEmailRequested = "email.requested"
	EventTypeUserRegistered = "user.registered"
)

// Email kinds
const (
	EmailKindVerification = "verification"
)

// Kafka topics
const (
	TopicEmailRequests = "email-requests"
	TopicUserEvents    = "user-events"
)
