// internal/storage/upload.go
package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UploadOptions struct {
	Folder            string
	MaxSize           int64 // in bytes
	AllowedExtensions []string
}

// TrackUploadOptions describes accepted audio uploads.
func TrackUploadOptions(maxUploadMB int) UploadOptions {
	return UploadOptions{
		Folder:            "tracks",
		MaxSize:           int64(maxUploadMB) * 1024 * 1024,
		AllowedExtensions: []string{".mp3", ".wav", ".flac", ".ogg", ".m4a"},
	}
}

func (o UploadOptions) Validate(filename string, size int64) error {
	// Validate file size
	if size <= 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if o.MaxSize > 0 && size > o.MaxSize {
		return fmt.Errorf("%w: file size %d bytes exceeds maximum allowed size %d bytes", ErrInvalidUpload, size, o.MaxSize)
	}

	// Validate file type
	if len(o.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(filename))
		for _, allowed := range o.AllowedExtensions {
			if ext == allowed {
				return nil
			}
		}
		return fmt.Errorf("%w: file type %q is not allowed", ErrInvalidUpload, ext)
	}

	return nil
}

// GenerateKey builds a unique object key that keeps the original extension.
func (o UploadOptions) GenerateKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	filename := fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102"), uuid.NewString(), ext)

	if o.Folder != "" {
		return o.Folder + "/" + filename
	}
	return filename
}
