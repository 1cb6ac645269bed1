package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/olenev/userhub/internal/user/domain"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       db,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock
}

func TestFindByEmailQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password", "full_name", "avatar",
		"role", "confirmed", "is_active", "refresh_token",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(
		1, "deadpool", "deadpool@example.com", "hash", "Wade Wilson", "",
		"user", true, true, nil, now, now, nil,
	)

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WithArgs("deadpool@example.com", 1).
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "deadpool@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)
	assert.True(t, user.Confirmed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRefreshTokenStatement(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token := "refresh-token-value"
	require.NoError(t, repo.UpdateRefreshToken(context.Background(), 1, &token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIsAnUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormUserRepository(db)

	// Soft delete must not issue a DELETE statement
	mock.ExpectExec(`UPDATE "users" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertStatement(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormUserRepository(db)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	user := &domain.User{
		Username: "deadpool",
		Email:    "deadpool@example.com",
		Password: "hash",
		Role:     domain.RoleUser,
		IsActive: true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.EqualValues(t, 42, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
