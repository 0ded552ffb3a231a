package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// URLPrefix is the path under which locally stored files are served.
const URLPrefix = "/uploads/"

// LocalStore writes files into a directory on disk.
type LocalStore struct {
	dir    string
	now    func() time.Time
	logger zerolog.Logger
}

// NewLocalStore creates a store rooted at dir, creating it when missing.
func NewLocalStore(dir string, logger zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &LocalStore{
		dir:    dir,
		now:    time.Now,
		logger: logger.With().Str("component", "local-store").Logger(),
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes the file and returns its /uploads/ path.
func (s *LocalStore) Save(ctx context.Context, file File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(file.Name, s.now())
	path := filepath.Join(s.dir, name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to create upload file")
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	written, err := io.Copy(out, file.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write upload file")
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	s.logger.Debug().
		Str("path", path).
		Int64("bytes", written).
		Msg("upload stored on local disk")

	return URLPrefix + name, nil
}
