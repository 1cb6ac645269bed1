package query

import (
	"context"
	"fmt"

	"github.com/olenev/userhub/internal/user/domain"
)

// GetStatsQuery represents the query to get user statistics (admin only)
type GetStatsQuery struct{}

// UserStats represents user statistics
type UserStats struct {
	TotalUsers     int64 `json:"total_users"`
	ConfirmedUsers int64 `json:"confirmed_users"`
	ActiveUsers    int64 `json:"active_users"`
	AdminCount     int64 `json:"admin_count"`
	UserCount      int64 `json:"user_count"`
}

// GetStatsHandler handles get stats query
type GetStatsHandler struct {
	repo domain.UserRepository
}

// NewGetStatsHandler creates a new get stats handler
func NewGetStatsHandler(repo domain.UserRepository) *GetStatsHandler {
	return &GetStatsHandler{repo: repo}
}

// Handle executes the get stats query
func (h *GetStatsHandler) Handle(ctx context.Context, _ GetStatsQuery) (*UserStats, error) {
	total, err := h.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	confirmed, err := h.repo.CountConfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed users: %w", err)
	}

	active, err := h.repo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	adminCount, err := h.repo.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}

	userCount, err := h.repo.CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}

	return &UserStats{
		TotalUsers:     total,
		ConfirmedUsers: confirmed,
		ActiveUsers:    active,
		AdminCount:     adminCount,
		UserCount:      userCount,
	}, nil
}
