package restock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shopflow/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for feeds stored under a local directory.
type fileLoader struct {
	root   string
	logger zerolog.Logger
}

// NewFileLoader creates a loader that reads feeds relative to root.
// Paths escaping root are rejected.
func NewFileLoader(root string, logger zerolog.Logger) Loader {
	return &fileLoader{
		root:   root,
		logger: logger.With().Str("component", "restock-loader").Logger(),
	}
}

// Load reads the gzipped feed at path below the loader's root.
func (l *fileLoader) Load(ctx context.Context, path string) (*Feed, error) {
	if !filepath.IsLocal(path) {
		l.logger.Warn().Str("file", path).Msg("restock feed path escapes feed directory")
		return nil, fmt.Errorf("%w: restock feed path %q is not allowed", model.ErrInvalidRequest, path)
	}

	fullPath := filepath.Join(l.root, path)
	l.logger.Info().Str("file", fullPath).Msg("loading restock feed")

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: restock feed %s does not exist", model.ErrInvalidRequest, path)
		}
		l.logger.Error().Err(err).Str("file", fullPath).Msg("failed to open restock feed")
		return nil, fmt.Errorf("failed to open restock feed %s: %w", path, err)
	}
	defer file.Close()

	feed, err := parseFeed(ctx, path, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", fullPath).Msg("failed to read restock feed")
		return nil, err
	}

	l.logger.Info().
		Str("file", fullPath).
		Int("lines", feed.Lines).
		Int("products", len(feed.Quantities)).
		Int("units", feed.Units()).
		Msg("restock feed loaded")

	return feed, nil
}
