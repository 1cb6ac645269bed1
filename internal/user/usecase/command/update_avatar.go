package command

import (
	"context"
	"fmt"
	"io"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/storage"
)

// UpdateAvatarCommand represents the command to replace a user's avatar
type UpdateAvatarCommand struct {
	UserID   uint
	Filename string
	Content  io.Reader
}

// UpdateAvatarHandler handles avatar upload command
type UpdateAvatarHandler struct {
	repo  domain.UserRepository
	store storage.AvatarStorage
}

// NewUpdateAvatarHandler creates a new update avatar handler
func NewUpdateAvatarHandler(repo domain.UserRepository, store storage.AvatarStorage) *UpdateAvatarHandler {
	return &UpdateAvatarHandler{repo: repo, store: store}
}

// Handle stores the uploaded image and points the user's avatar at it
func (h *UpdateAvatarHandler) Handle(ctx context.Context, cmd UpdateAvatarCommand) (*domain.User, error) {
	if cmd.UserID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if cmd.Content == nil {
		return nil, fmt.Errorf("file is required")
	}

	user, err := h.repo.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	url, err := h.store.Save(ctx, user.ID, cmd.Filename, cmd.Content)
	if err != nil {
		return nil, err
	}

	if err := h.repo.UpdateAvatar(ctx, user.ID, url); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	user.Avatar = url
	return user, nil
}
