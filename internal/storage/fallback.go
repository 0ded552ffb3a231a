package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// FallbackStore tries a primary store first and falls back to a secondary
// one when the primary fails. A nil primary always uses the secondary.
type FallbackStore struct {
	primary   Store
	secondary Store
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that prefers primary over secondary.
func NewFallbackStore(primary, secondary Store, logger zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-store").Logger(),
	}
}

// Save stores the file with the primary store, retrying on the secondary.
func (s *FallbackStore) Save(ctx context.Context, file File) (string, error) {
	if s.primary == nil {
		return s.secondary.Save(ctx, file)
	}

	// The body is read twice at most, so buffer it once.
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload %s: %w", file.Name, err)
	}

	file.Body = bytes.NewReader(data)
	ref, err := s.primary.Save(ctx, file)
	if err == nil {
		return ref, nil
	}

	s.logger.Warn().
		Err(err).
		Str("file", file.Name).
		Msg("primary store failed, falling back to local disk")

	file.Body = bytes.NewReader(data)
	return s.secondary.Save(ctx, file)
}
