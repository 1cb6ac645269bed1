package command

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/storage"
	"github.com/olenev/userhub/pkg/auth"
)

func TestUpdateUserProfile(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewUpdateUserHandler(repo)
	user := seedUser(t, repo, "deadpool@example.com", true)

	updated, err := handler.Handle(ctx, UpdateUserCommand{
		ID:       user.ID,
		Email:    user.Email,
		FullName: "Wade Winston Wilson",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wade Winston Wilson", updated.FullName)

	// Same email keeps the confirmation
	assert.True(t, updated.Confirmed)
}

func TestUpdateUserEmailChangeResetsConfirmation(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewUpdateUserHandler(repo)
	user := seedUser(t, repo, "deadpool@example.com", true)

	updated, err := handler.Handle(ctx, UpdateUserCommand{
		ID:       user.ID,
		Email:    "new@example.com",
		FullName: user.FullName,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.Confirmed)
}

func TestUpdateUserChangesPassword(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewUpdateUserHandler(repo)
	user := seedUser(t, repo, "deadpool@example.com", true)

	updated, err := handler.Handle(ctx, UpdateUserCommand{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Password: "brand-new-pass",
	})
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(updated.Password, "brand-new-pass"))
	assert.False(t, auth.CheckPassword(updated.Password, testPassword))

	_, err = handler.Handle(ctx, UpdateUserCommand{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Password: "abc",
	})
	assert.Error(t, err, "short replacement password must be rejected")
}

func TestUpdateUserEmailTaken(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	handler := NewUpdateUserHandler(repo)
	user := seedUser(t, repo, "deadpool@example.com", true)
	seedUser(t, repo, "taken@example.com", true)

	_, err := handler.Handle(ctx, UpdateUserCommand{
		ID:       user.ID,
		Email:    "taken@example.com",
		FullName: user.FullName,
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUpdateUserNotFound(t *testing.T) {
	handler := NewUpdateUserHandler(setupRepo(t))

	_, err := handler.Handle(context.Background(), UpdateUserCommand{
		ID:    9999,
		Email: "ghost@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

// fakeAvatarStore implements storage.AvatarStorage for handler tests
type fakeAvatarStore struct {
	url string
	err error
}

func (f *fakeAvatarStore) Save(_ context.Context, _ uint, _ string, _ io.Reader) (string, error) {
	return f.url, f.err
}

func TestUpdateAvatarStoresURL(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	store := &fakeAvatarStore{url: "/static/avatars/7_abcd1234.png"}
	handler := NewUpdateAvatarHandler(repo, store)
	user := seedUser(t, repo, "deadpool@example.com", true)

	updated, err := handler.Handle(ctx, UpdateAvatarCommand{
		UserID:   user.ID,
		Filename: "me.png",
		Content:  strings.NewReader("fake-png"),
	})
	require.NoError(t, err)
	assert.Equal(t, store.url, updated.Avatar)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.url, stored.Avatar)
}

func TestUpdateAvatarUnsupportedFormat(t *testing.T) {
	repo := setupRepo(t)
	store := &fakeAvatarStore{err: storage.ErrUnsupportedFormat}
	handler := NewUpdateAvatarHandler(repo, store)
	user := seedUser(t, repo, "deadpool@example.com", true)

	_, err := handler.Handle(context.Background(), UpdateAvatarCommand{
		UserID:   user.ID,
		Filename: "payload.exe",
		Content:  strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat)
}

func TestUpdateAvatarUserNotFound(t *testing.T) {
	handler := NewUpdateAvatarHandler(setupRepo(t), &fakeAvatarStore{url: "u"})

	_, err := handler.Handle(context.Background(), UpdateAvatarCommand{
		UserID:   9999,
		Filename: "me.png",
		Content:  strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
