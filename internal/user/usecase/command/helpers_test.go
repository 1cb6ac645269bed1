package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/repository"
	"github.com/olenev/userhub/pkg/auth"
)

const testPassword = "secret123"

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

func seedUser(t *testing.T, repo domain.UserRepository, email string, confirmed bool) *domain.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	user := &domain.User{
		Username:  strings.SplitN(email, "@", 2)[0],
		Email:     email,
		Password:  hash,
		FullName:  "Seeded User",
		Role:      domain.RoleUser,
		Confirmed: confirmed,
		IsActive:  true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", 0, 0, 0)
}
