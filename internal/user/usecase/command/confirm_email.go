package command

import (
	"context"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/auth"
)

// ConfirmEmailCommand represents the command to confirm an email address
// from a verification link token
type ConfirmEmailCommand struct {
	Token string
}

// ConfirmEmailResult reports whether the address was already confirmed
type ConfirmEmailResult struct {
	Email            string
	AlreadyConfirmed bool
}

// ConfirmEmailHandler handles email confirmation command
type ConfirmEmailHandler struct {
	repo   domain.UserRepository
	tokens *auth.TokenManager
}

// NewConfirmEmailHandler creates a new confirm email handler
func NewConfirmEmailHandler(repo domain.UserRepository, tokens *auth.TokenManager) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{repo: repo, tokens: tokens}
}

// Handle executes the confirm email command. Confirming twice is not an
// error; the result carries the distinction.
func (h *ConfirmEmailHandler) Handle(ctx context.Context, cmd ConfirmEmailCommand) (*ConfirmEmailResult, error) {
	email, err := h.tokens.ParseEmailToken(cmd.Token)
	if err != nil {
		return nil, err
	}

	user, err := h.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	if user.Confirmed {
		return &ConfirmEmailResult{Email: email, AlreadyConfirmed: true}, nil
	}

	if err := h.repo.ConfirmEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}

	return &ConfirmEmailResult{Email: email}, nil
}
