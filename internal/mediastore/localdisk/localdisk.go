// Package localdisk implements the media store over a local directory that
// the router serves under /uploads/. Orphaned files are never reclaimed;
// writes are at-most-once and never rolled back.
package localdisk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patric-chuzhbe/staybook/internal/models"
)

// Store writes photos into a fixed served directory.
type Store struct {
	uploadsDir string

	// publicBaseURL is the externally visible server base; references are
	// formed as <publicBaseURL>/uploads/<name>.
	publicBaseURL string
}

// New creates the uploads directory when missing and returns a Store.
func New(uploadsDir, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}

	return &Store{
		uploadsDir:    uploadsDir,
		publicBaseURL: publicBaseURL,
	}, nil
}

// Save writes the photo to disk and returns its public reference. The local
// path never leaks into the reference.
func (s *Store) Save(ctx context.Context, data []byte, name, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(s.uploadsDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	return s.publicBaseURL + "/uploads/" + name, nil
}

// Dir returns the served directory, for wiring the static file route.
func (s *Store) Dir() string {
	return s.uploadsDir
}
