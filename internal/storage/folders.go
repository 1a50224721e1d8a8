// Package storage provisions per-user attachment folders on local disk.
// Folder creation is idempotent; concurrent uploads for the same user
// serialize behind a single creation through singleflight.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Alkitu/alkitu-template-sub002/internal/singleflight"

	"github.com/rs/zerolog"
)

type FolderService struct {
	root   string
	flight singleflight.Group[int64, string]
	logger *zerolog.Logger
}

func NewFolderService(root string, logger *zerolog.Logger) *FolderService {
	return &FolderService{root: root, logger: logger}
}

// EnsureUserFolder returns the attachment folder for a user, creating it on
// first use. Concurrent callers for the same user share one creation.
func (s *FolderService) EnsureUserFolder(userID int64) (string, error) {
	return s.flight.Do(userID, func() (string, error) {
		dir := filepath.Join(s.root, fmt.Sprintf("user_%d", userID))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create attachment folder: %w", err)
		}
		if s.logger != nil {
			s.logger.Debug().Str("dir", dir).Int64("user_id", userID).Msg("attachment folder ensured")
		}
		return dir, nil
	})
}

// SaveAttachment writes an uploaded file into the user's folder and returns
// the stored path.
func (s *FolderService) SaveAttachment(userID int64, name string, r io.Reader) (string, error) {
	dir, err := s.EnsureUserFolder(userID)
	if err != nil {
		return "", err
	}

	// Strip any path components from the client-supplied name.
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid attachment name")
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path, nil
}
