package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
)

// RequestEmailCommand represents the command to re-request a
// verification email
type RequestEmailCommand struct {
	Email string
}

// RequestEmailResult describes what the caller should do next. User is
// nil when the address is unknown; the endpoint still answers with the
// generic message so addresses cannot be probed.
type RequestEmailResult struct {
	User             *domain.User
	AlreadyConfirmed bool
}

// RequestEmailHandler handles verification email re-requests
type RequestEmailHandler struct {
	repo domain.UserRepository
}

// NewRequestEmailHandler creates a new request email handler
func NewRequestEmailHandler(repo domain.UserRepository) *RequestEmailHandler {
	return &RequestEmailHandler{repo: repo}
}

// Handle executes the request email command
func (h *RequestEmailHandler) Handle(ctx context.Context, cmd RequestEmailCommand) (*RequestEmailResult, error) {
	if cmd.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := h.repo.FindByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return &RequestEmailResult{}, nil
		}
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if user.Confirmed {
		return &RequestEmailResult{User: user, AlreadyConfirmed: true}, nil
	}

	return &RequestEmailResult{User: user}, nil
}
