package storage

import (
	"context"
	"io"
)

// ObjectStorage abstracts the S3-compatible store holding creative assets.
type ObjectStorage interface {
	// EnsureBucket creates the bucket if it doesn't exist
	EnsureBucket(ctx context.Context) error

	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks if an object exists in storage
	Exists(ctx context.Context, key string) (bool, error)

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for accessing an object
	GetURL(key string) string
}
