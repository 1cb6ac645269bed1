package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes. Every token this service issues carries exactly one scope,
// and each parse helper accepts exactly one.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

var (
	// ErrInvalidToken covers malformed, expired, or mis-signed tokens.
	ErrInvalidToken = errors.New("could not validate credentials")
	// ErrInvalidScope is returned when a valid token is presented to an
	// endpoint expecting a different scope.
	ErrInvalidScope = errors.New("invalid scope for token")
)

// Claims are the JWT claims issued by this service. Subject carries the
// user's email address.
type Claims struct {
	UserID uint   `json:"uid,omitempty"`
	Role   string `json:"role,omitempty"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the service's HS256 tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

// NewTokenManager creates a token manager. TTLs of zero fall back to the
// service defaults (15 minutes access, 7 days refresh and email).
func NewTokenManager(secret string, accessTTL, refreshTTL, emailTTL time.Duration) *TokenManager {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if emailTTL == 0 {
		emailTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		emailTTL:   emailTTL,
	}
}

// CreateAccessToken issues a short-lived access token for the user.
func (m *TokenManager) CreateAccessToken(userID uint, email, role string) (string, error) {
	return m.sign(Claims{
		UserID: userID,
		Role:   role,
		Scope:  ScopeAccess,
	}, email, m.accessTTL)
}

// CreateRefreshToken issues a refresh token. The jti makes every issued
// refresh token unique so rotation can detect reuse.
func (m *TokenManager) CreateRefreshToken(userID uint, email string) (string, error) {
	return m.sign(Claims{
		UserID: userID,
		Scope:  ScopeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
	}, email, m.refreshTTL)
}

// CreateEmailToken issues the token embedded in verification links.
func (m *TokenManager) CreateEmailToken(email string) (string, error) {
	return m.sign(Claims{Scope: ScopeEmail}, email, m.emailTTL)
}

// ParseAccessToken verifies an access token and returns its claims.
func (m *TokenManager) ParseAccessToken(token string) (*Claims, error) {
	return m.parse(token, ScopeAccess)
}

// ParseRefreshToken verifies a refresh token and returns its claims.
func (m *TokenManager) ParseRefreshToken(token string) (*Claims, error) {
	return m.parse(token, ScopeRefresh)
}

// ParseEmailToken verifies an email verification token and returns the
// email address it was issued for.
func (m *TokenManager) ParseEmailToken(token string) (string, error) {
	claims, err := m.parse(token, ScopeEmail)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *TokenManager) sign(claims Claims, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Subject = email
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(tokenString, scope string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims.Scope != scope {
		return nil, ErrInvalidScope
	}
	return claims, nil
}
