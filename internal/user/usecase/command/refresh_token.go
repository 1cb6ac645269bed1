package command

import (
	"context"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/auth"
)

// RefreshTokenCommand represents the command to rotate a refresh token
type RefreshTokenCommand struct {
	Token string
}

// RefreshTokenHandler handles refresh token rotation
type RefreshTokenHandler struct {
	repo   domain.UserRepository
	tokens *auth.TokenManager
}

// NewRefreshTokenHandler creates a new refresh token handler
func NewRefreshTokenHandler(repo domain.UserRepository, tokens *auth.TokenManager) *RefreshTokenHandler {
	return &RefreshTokenHandler{repo: repo, tokens: tokens}
}

// Handle validates the presented refresh token against the stored one
// and issues a fresh pair. A token that does not match the stored value
// clears it, forcing a new login for every session of that user.
func (h *RefreshTokenHandler) Handle(ctx context.Context, cmd RefreshTokenCommand) (*TokenPair, error) {
	claims, err := h.tokens.ParseRefreshToken(cmd.Token)
	if err != nil {
		return nil, err
	}

	user, err := h.repo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	if user.RefreshToken == nil || *user.RefreshToken != cmd.Token {
		if err := h.repo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
			return nil, fmt.Errorf("failed to clear refresh token: %w", err)
		}
		return nil, domain.ErrRefreshMismatch
	}

	if !user.IsActive {
		return nil, domain.ErrUserDeactivated
	}

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
