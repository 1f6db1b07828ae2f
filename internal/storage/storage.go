// Package storage abstracts the blob store holding relation documents.
// Paths are opaque references assigned at upload time.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound indicates the blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidPath indicates a path escaping the storage root.
	ErrInvalidPath = errors.New("invalid blob path")
)

// BlobStore is the interface the core consumes for document content.
type BlobStore interface {
	// Upload stores the content under destPath and returns the stored path.
	Upload(ctx context.Context, content io.Reader, destPath string) (string, error)
	// Open returns a reader for the blob at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove deletes the blob at path. Removing a missing blob is not an error.
	Remove(ctx context.Context, path string) error
}

// URLSigner mints and verifies time-limited download URLs for blob paths.
type URLSigner interface {
	Sign(path string, ttl time.Duration) string
	Verify(path, expires, signature string) error
}
