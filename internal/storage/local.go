package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// PublicPrefix is where the backend serves the upload directory
const PublicPrefix = "/uploads"

// LocalStore writes images under <dir>/images
type LocalStore struct {
	dir string
}

// NewLocalStore creates the image directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root served under PublicPrefix
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes data and returns a path relative to the backend origin
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := name + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, "images", filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return PublicPrefix + "/images/" + filename, nil
}
