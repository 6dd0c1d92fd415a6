// Package identity implements anonymous sign-in for the saved-quotes
// surface. The device gets a generated user id on first use, persisted so
// the same id comes back on every subsequent start.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AnonymousIdentityConfig contains configuration for the anonymous
// identity provider.
type AnonymousIdentityConfig struct {
	// Path is where the generated user id is persisted.
	Path string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// AnonymousIdentity implements ports.Identity by minting a UUID on first
// sign-in and persisting it to disk. EnsureSignedIn is idempotent.
type AnonymousIdentity struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	userID string
}

// NewAnonymousIdentity creates an anonymous identity provider.
// Panics if Path is empty. Defaults logger to slog.Default() if nil.
func NewAnonymousIdentity(cfg AnonymousIdentityConfig) *AnonymousIdentity {
	if cfg.Path == "" {
		panic("AnonymousIdentity: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AnonymousIdentity{
		path:   cfg.Path,
		logger: logger.With(slog.String("component", "identity.AnonymousIdentity")),
	}
}

// EnsureSignedIn implements ports.Identity. The first call loads or mints
// the user id; later calls return it unchanged.
func (a *AnonymousIdentity) EnsureSignedIn(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.userID != "" {
		return a.userID, nil
	}

	data, err := os.ReadFile(a.path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			a.userID = id
			a.logger.DebugContext(ctx, "restored anonymous identity", slog.String("user_id", id))

			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading identity file: %w", err)
	}

	id := uuid.NewString()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}

	if err := os.WriteFile(a.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persisting identity: %w", err)
	}

	a.userID = id
	a.logger.InfoContext(ctx, "created anonymous identity", slog.String("user_id", id))

	return id, nil
}

// UserID implements ports.Identity. Returns empty before the first
// successful EnsureSignedIn.
func (a *AnonymousIdentity) UserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.userID
}
