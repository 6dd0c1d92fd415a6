// Package snapcache implements the local saved-quotes fallback cache:
// one JSON blob in one file, replaced wholesale on every store. Reads
// serve the last successfully written snapshot when the remote document
// store is unreachable.
package snapcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// FileCacheConfig contains configuration for the file-backed cache.
type FileCacheConfig struct {
	// Path is the cache file location. Parent directories are created on
	// first write.
	Path string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// FileCache implements ports.SnapshotCache on a single file. Writes go
// through a temp file and rename so a crash mid-write never corrupts the
// previous snapshot.
type FileCache struct {
	path   string
	logger *slog.Logger
}

// NewFileCache creates a file-backed snapshot cache.
// Panics if Path is empty. Defaults logger to slog.Default() if nil.
func NewFileCache(cfg FileCacheConfig) *FileCache {
	if cfg.Path == "" {
		panic("FileCache: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FileCache{
		path:   cfg.Path,
		logger: logger.With(slog.String("component", "snapcache.FileCache")),
	}
}

// Load implements ports.SnapshotCache.
func (c *FileCache) Load(ctx context.Context) ([]domain.SavedQuote, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewNotFoundError("saved quotes snapshot", "")
	}

	if err != nil {
		return nil, fmt.Errorf("reading snapshot cache: %w", err)
	}

	var quotes []domain.SavedQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("decoding snapshot cache: %w", err)
	}

	c.logger.DebugContext(ctx, "loaded snapshot cache", slog.Int("count", len(quotes)))

	return quotes, nil
}

// Store implements ports.SnapshotCache.
func (c *FileCache) Store(ctx context.Context, quotes []domain.SavedQuote) error {
	if quotes == nil {
		quotes = []domain.SavedQuote{}
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encoding snapshot cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing temp snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot cache: %w", err)
	}

	c.logger.DebugContext(ctx, "stored snapshot cache", slog.Int("count", len(quotes)))

	return nil
}
