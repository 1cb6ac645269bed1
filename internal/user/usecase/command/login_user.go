package command

import (
	"context"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/auth"
)

// LoginUserCommand represents the command to login a user. Email is the
// login identifier.
type LoginUserCommand struct {
	Email    string
	Password string
}

// TokenPair is the token set issued on successful authentication
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginUserHandler handles user login command
type LoginUserHandler struct {
	repo   domain.UserRepository
	tokens *auth.TokenManager
}

// NewLoginUserHandler creates a new login user handler
func NewLoginUserHandler(repo domain.UserRepository, tokens *auth.TokenManager) *LoginUserHandler {
	return &LoginUserHandler{repo: repo, tokens: tokens}
}

// Handle executes the login user command. The issued refresh token is
// persisted so it can be checked on rotation.
func (h *LoginUserHandler) Handle(ctx context.Context, cmd LoginUserCommand) (*TokenPair, error) {
	// Validation
	if cmd.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if cmd.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	// Find user by email
	user, err := h.repo.FindByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}

	// Unconfirmed accounts cannot authenticate
	if !user.Confirmed {
		return nil, domain.ErrEmailNotConfirmed
	}

	// Check if user is active
	if !user.IsActive {
		return nil, domain.ErrUserDeactivated
	}

	// Verify password
	if !auth.CheckPassword(user.Password, cmd.Password) {
		return nil, domain.ErrInvalidPassword
	}

	// Generate token pair
	accessToken, err := h.tokens.CreateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := h.tokens.CreateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := h.repo.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
