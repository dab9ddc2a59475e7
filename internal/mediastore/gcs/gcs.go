// Package gcs implements the media store over a Google Cloud Storage bucket.
// Objects are written world-readable; the returned reference is the fully
// qualified bucket URL.
package gcs

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"

	"github.com/patric-chuzhbe/staybook/internal/models"
)

// Store uploads photos into a single bucket configured at startup.
type Store struct {
	bucketName string
	gcsClient  *storage.Client
}

// New creates a GCS-backed store. Credentials come from the ambient
// application-default configuration.
func New(ctx context.Context, bucketName string) (*Store, error) {
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("while creating GCS client: %w", err)
	}

	return &Store{
		bucketName: bucketName,
		gcsClient:  gcsClient,
	}, nil
}

// Save uploads the photo with a public-read ACL and returns the bucket URL.
// Unreachable storage surfaces as models.ErrStorageUnavailable.
func (s *Store) Save(ctx context.Context, data []byte, name, contentType string) (string, error) {
	writer := s.gcsClient.Bucket(s.bucketName).Object(name).NewWriter(ctx)
	writer.ContentType = contentType
	writer.PredefinedACL = "publicRead"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	return "https://storage.googleapis.com/" +
		url.PathEscape(s.bucketName) + "/" + url.PathEscape(name), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.gcsClient.Close()
}
