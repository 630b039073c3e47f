// Package storage holds photo bytes outside the database. The disk backend
// is the default; the s3 backend targets S3-compatible object stores.
package storage

import (
	"context"
	"io"
)

// Store is the file store behind the photo service. Delete is idempotent:
// deleting an absent path is not an error.
type Store interface {
	Write(ctx context.Context, name string, r io.Reader) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
