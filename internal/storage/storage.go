// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/javajoker/trackstore-backend/internal/config"
)

var (
	ErrNotFound      = errors.New("blob not found")
	ErrInvalidUpload = errors.New("invalid upload")
)

// Blob is an open object. Callers must close it.
type Blob struct {
	io.ReadCloser
	Size        int64
	ContentType string
}

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

// New selects the store configured by STORAGE_DRIVER.
func New(cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Store(cfg.AWS)
	case "local", "":
		return NewLocalStore(cfg.Storage.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
