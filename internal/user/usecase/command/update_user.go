package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/auth"
)

// UpdateUserCommand represents the command to update a user's profile
type UpdateUserCommand struct {
	ID       uint
	Email    string
	FullName string
	Password string // Optional, empty leaves the password unchanged
}

// UpdateUserHandler handles user update command
type UpdateUserHandler struct {
	repo domain.UserRepository
}

// NewUpdateUserHandler creates a new update user handler
func NewUpdateUserHandler(repo domain.UserRepository) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

// Handle executes the update user command. Changing the email address
// resets the confirmed flag; the new address has to be verified again.
func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) (*domain.User, error) {
	// Validation
	if cmd.ID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if cmd.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	// Check if user exists
	user, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if cmd.Email != user.Email {
		if _, err := h.repo.FindByEmail(ctx, cmd.Email); err == nil {
			return nil, domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		user.Email = cmd.Email
		user.Confirmed = false
	}

	if cmd.Password != "" {
		if len(cmd.Password) < 6 {
			return nil, fmt.Errorf("password must be at least 6 characters")
		}
		hashedPassword, err := auth.HashPassword(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashedPassword
	}

	user.FullName = cmd.FullName
	user.UpdatedAt = time.Now()

	if err := h.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
