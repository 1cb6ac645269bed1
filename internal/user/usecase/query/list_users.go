package query

import (
	"context"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
)

// Pagination bounds for user listings
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ListUsersQuery represents the query to list users with pagination.
// Role narrows the listing when set.
type ListUsersQuery struct {
	Limit  int
	Offset int
	Role   string
}

// ListUsersHandler handles list users query
type ListUsersHandler struct {
	repo domain.UserRepository
}

// NewListUsersHandler creates a new list users handler
func NewListUsersHandler(repo domain.UserRepository) *ListUsersHandler {
	return &ListUsersHandler{repo: repo}
}

// Handle executes the list users query
func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) ([]domain.User, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	if q.Role != "" {
		if q.Role != domain.RoleUser && q.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("invalid role")
		}
		return h.repo.FindByRole(ctx, q.Role, limit, offset)
	}

	return h.repo.FindAll(ctx, limit, offset)
}
