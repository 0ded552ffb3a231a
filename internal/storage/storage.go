// Package storage persists uploaded prescription images and returns stable
// references that are stored alongside the request.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is an uploaded image awaiting storage.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store saves a file and returns a reference clients can fetch it from.
type Store interface {
	Save(ctx context.Context, file File) (string, error)
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsImage reports whether contentType is an accepted image type.
func IsImage(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return imageTypes[ct]
}

// objectName builds a collision-free name that keeps the original extension.
func objectName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}
