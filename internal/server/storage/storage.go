// Package storage abstracts the object store holding raw document bytes.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore stores raw document payloads under opaque keys and issues
// time-bounded signed references for direct client access.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// Stat returns the stored object's size, or common.ErrNotFound.
	Stat(ctx context.Context, key string) (int64, error)
	// PresignPut issues a signed URL that allows uploading the object directly.
	PresignPut(ctx context.Context, key string, contentType string, expiry time.Duration) (string, error)
	// PresignGet issues a signed URL that allows downloading the object directly.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
