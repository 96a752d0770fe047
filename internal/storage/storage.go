// Package storage holds task attachment bytes.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned by constructors when no endpoint is set.
var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore is the subset of object storage used for attachments.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key, filename string, expires time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
