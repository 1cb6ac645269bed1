package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/repository"
)

func setupRepo(t *testing.T) domain.UserRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return repository.NewGormUserRepository(db)
}

func seed(t *testing.T, repo domain.UserRepository, n int, role string, confirmed, active bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		user := &domain.User{
			Username:  fmt.Sprintf("%s-%t-%t-%d", role, confirmed, active, i),
			Email:     fmt.Sprintf("%s-%t-%t-%d@example.com", role, confirmed, active, i),
			Password:  "hash",
			Role:      role,
			Confirmed: confirmed,
			IsActive:  active,
		}
		require.NoError(t, repo.Create(context.Background(), user))
	}
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewGetUserHandler(repo)
	seed(t, repo, 1, domain.RoleUser, true, true)

	user, err := handler.Handle(ctx, GetUserQuery{ID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)

	_, err = handler.Handle(ctx, GetUserQuery{ID: 0})
	assert.Error(t, err)

	_, err = handler.Handle(ctx, GetUserQuery{ID: 42})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListUsersPagination(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewListUsersHandler(repo)
	seed(t, repo, 5, domain.RoleUser, true, true)

	page, err := handler.Handle(ctx, ListUsersQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := handler.Handle(ctx, ListUsersQuery{Limit: 10, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	// Zero limit falls back to the default
	all, err := handler.Handle(ctx, ListUsersQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListUsersByRole(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewListUsersHandler(repo)
	seed(t, repo, 3, domain.RoleUser, true, true)
	seed(t, repo, 2, domain.RoleAdmin, true, true)

	admins, err := handler.Handle(ctx, ListUsersQuery{Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	_, err = handler.Handle(ctx, ListUsersQuery{Role: "superuser"})
	assert.Error(t, err)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewGetStatsHandler(repo)

	seed(t, repo, 2, domain.RoleAdmin, true, true)
	seed(t, repo, 3, domain.RoleUser, true, true)
	seed(t, repo, 2, domain.RoleUser, false, true)
	seed(t, repo, 1, domain.RoleUser, true, false)

	stats, err := handler.Handle(ctx, GetStatsQuery{})
	require.NoError(t, err)

	assert.EqualValues(t, 8, stats.TotalUsers)
	assert.EqualValues(t, 6, stats.ConfirmedUsers)
	assert.EqualValues(t, 7, stats.ActiveUsers)
	assert.EqualValues(t, 2, stats.AdminCount)
	assert.EqualValues(t, 6, stats.UserCount)
}
