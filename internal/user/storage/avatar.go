package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for uploads that are not images
var ErrUnsupportedFormat = errors.New("unsupported image format")

// AvatarStorage persists uploaded avatar images and returns the URL
// path they are served under.
type AvatarStorage interface {
	Save(ctx context.Context, userID uint, filename string, content io.Reader) (string, error)
}

// LocalAvatarStorage keeps avatars on the local filesystem. Files are
// served by the API under baseURL.
type LocalAvatarStorage struct {
	dir     string
	baseURL string
}

// NewLocalAvatarStorage creates the storage directory if needed
func NewLocalAvatarStorage(dir, baseURL string) (*LocalAvatarStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}
	return &LocalAvatarStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the filesystem directory avatars are written to
func (s *LocalAvatarStorage) Dir() string {
	return s.dir
}

// Save writes the upload to disk under a fresh name. The name embeds a
// random component so a replaced avatar gets a new URL and stale
// browser caches never show the old image.
func (s *LocalAvatarStorage) Save(_ context.Context, userID uint, filename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", ErrUnsupportedFormat
	}

	name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close avatar file: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
