package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/auth"
)

type contextKey string

const UserKey contextKey = "current_user"

// CurrentUser returns the principal stored by AuthMiddleware.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}

// bearerToken extracts the credentials from "Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware resolves access tokens into the current user. The
// principal is loaded through the repository on every request, so a
// deactivated or deleted account loses access as soon as its row
// changes, not when its token expires.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	repo   domain.UserRepository
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokens *auth.TokenManager, repo domain.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, repo: repo}
}

// Authenticate validates the JWT access token and loads the principal
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		claims, err := m.tokens.ParseAccessToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		// Subject carries the email address
		user, err := m.repo.FindByEmail(r.Context(), claims.Subject)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !user.IsActive {
			respondError(w, http.StatusForbidden, "Account is deactivated")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminOnly checks that the authenticated user has the admin role
func (m *AuthMiddleware) AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok || !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper function for error responses
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
