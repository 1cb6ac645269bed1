package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/pkg/logger"
)

// DefaultCacheTTL bounds how long a cached user may lag behind the
// database.
const DefaultCacheTTL = 15 * time.Minute

// cachedUser mirrors domain.User with every field serialized. The
// domain model hides Password and RefreshToken from JSON, so it cannot
// be stored directly without losing them on the way back.
type cachedUser struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	FullName     string    `json:"full_name"`
	Avatar       string    `json:"avatar"`
	Role         string    `json:"role"`
	Confirmed    bool      `json:"confirmed"`
	IsActive     bool      `json:"is_active"`
	RefreshToken *string   `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toCached(u *domain.User) *cachedUser {
	return &cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Password:     u.Password,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		Role:         u.Role,
		Confirmed:    u.Confirmed,
		IsActive:     u.IsActive,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c *cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           c.ID,
		Username:     c.Username,
		Email:        c.Email,
		Password:     c.Password,
		FullName:     c.FullName,
		Avatar:       c.Avatar,
		Role:         c.Role,
		Confirmed:    c.Confirmed,
		IsActive:     c.IsActive,
		RefreshToken: c.RefreshToken,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// CachedUserRepository is a read-through cache over a UserRepository.
// Lookups by email and by id are cached in Redis; every mutation drops
// the affected entries before it reaches the underlying store. Redis
// being unavailable degrades to plain database access.
type CachedUserRepository struct {
	domain.UserRepository

	rdb redis.UniversalClient
	ttl time.Duration
}

// NewCachedUserRepository creates a caching decorator around next. A
// zero ttl falls back to DefaultCacheTTL.
func NewCachedUserRepository(next domain.UserRepository, rdb redis.UniversalClient, ttl time.Duration) *CachedUserRepository {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedUserRepository{
		UserRepository: next,
		rdb:            rdb,
		ttl:            ttl,
	}
}

func emailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

func idKey(id uint) string {
	return fmt.Sprintf("user:id:%d", id)
}

// FindByEmail serves from cache when possible. This is the hot path:
// every authenticated request resolves the token subject through it.
func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	key := emailKey(email)
	if cached := r.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	user, err := r.UserRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, user)
	return user, nil
}

// FindByID serves from cache when possible
func (r *CachedUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	key := idKey(id)
	if cached := r.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, user)
	return user, nil
}

// Update writes through and drops the cached entries. When the row
// carries a changed address the keys of the stored row are dropped as
// well, otherwise the old address would keep serving from cache until
// its TTL runs out.
func (r *CachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if prev, err := r.UserRepository.FindByID(ctx, user.ID); err == nil && prev.Email != user.Email {
		r.invalidate(ctx, emailKey(prev.Email))
	}
	r.invalidate(ctx, emailKey(user.Email), idKey(user.ID))
	return r.UserRepository.Update(ctx, user)
}

// UpdateRefreshToken drops the cached entries before storing the token
func (r *CachedUserRepository) UpdateRefreshToken(ctx context.Context, id uint, token *string) error {
	r.invalidateByID(ctx, id)
	return r.UserRepository.UpdateRefreshToken(ctx, id, token)
}

// ConfirmEmail drops the cached entries before flipping the flag
func (r *CachedUserRepository) ConfirmEmail(ctx context.Context, email string) error {
	r.invalidateByEmail(ctx, email)
	return r.UserRepository.ConfirmEmail(ctx, email)
}

// UpdateAvatar drops the cached entries before storing the URL
func (r *CachedUserRepository) UpdateAvatar(ctx context.Context, id uint, url string) error {
	r.invalidateByID(ctx, id)
	return r.UserRepository.UpdateAvatar(ctx, id, url)
}

// Delete drops the cached entries before removing the user
func (r *CachedUserRepository) Delete(ctx context.Context, id uint) error {
	r.invalidateByID(ctx, id)
	return r.UserRepository.Delete(ctx, id)
}

// lookup returns the cached user for key, or nil on miss or any Redis
// trouble
func (r *CachedUserRepository) lookup(ctx context.Context, key string) *domain.User {
	data, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn(ctx).Err(err).Msg("User cache unavailable, falling back to database")
		}
		return nil
	}

	var cached cachedUser
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		logger.Warn(ctx).Str("key", key).Msg("Dropping undecodable cache entry")
		r.invalidate(ctx, key)
		return nil
	}
	return cached.toDomain()
}

func (r *CachedUserRepository) store(ctx context.Context, key string, user *domain.User) {
	data, err := json.Marshal(toCached(user))
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("key", key).Msg("Failed to cache user")
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		logger.Warn(ctx).Err(err).Strs("keys", keys).Msg("Failed to invalidate user cache")
	}
}

// invalidateByEmail resolves the row through the underlying store so
// both keys can be dropped; the id is not part of the mutation.
func (r *CachedUserRepository) invalidateByEmail(ctx context.Context, email string) {
	if user, err := r.UserRepository.FindByEmail(ctx, email); err == nil {
		r.invalidate(ctx, emailKey(email), idKey(user.ID))
		return
	}
	r.invalidate(ctx, emailKey(email))
}

// invalidateByID resolves the row through the underlying store so both
// keys can be dropped; the email is not part of the mutation.
func (r *CachedUserRepository) invalidateByID(ctx context.Context, id uint) {
	if user, err := r.UserRepository.FindByID(ctx, id); err == nil {
		r.invalidate(ctx, emailKey(user.Email), idKey(id))
		return
	}
	r.invalidate(ctx, idKey(id))
}
