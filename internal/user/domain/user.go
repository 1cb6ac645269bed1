package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Role types
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Domain errors returned by repositories and command handlers. The HTTP
// layer maps these to status codes.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("account already exists")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrUserDeactivated   = errors.New("account is deactivated")
	ErrRefreshMismatch   = errors.New("invalid refresh token")
)

// User represents the user entity (domain model)
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"uniqueIndex;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	Password     string         `json:"-" gorm:"not null"` // Never expose password in JSON
	FullName     string         `json:"full_name"`
	Avatar       string         `json:"avatar"`
	Role         string         `json:"role" gorm:"not null;default:'user'"`
	Confirmed    bool           `json:"confirmed" gorm:"default:false"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	RefreshToken *string        `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"` // Soft delete
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRepository defines the contract for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, limit, offset int) ([]User, error)
	FindByRole(ctx context.Context, role string, limit, offset int) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdateRefreshToken(ctx context.Context, id uint, token *string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, id uint, url string) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	CountConfirmed(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}
