package ports

import (
	"context"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// Unsubscribe tears down a live-query subscription. Safe to call twice.
type Unsubscribe func()

// DocumentTx is the view of a document store inside a transaction.
// Reads observe committed state; writes take effect atomically when the
// transaction function returns nil.
type DocumentTx interface {
	// Get reads the document with the given id.
	// Returns domain.ErrNotFound if the document does not exist.
	Get(id string) (*domain.SavedQuote, error)

	// Set writes the document under its id, creating or replacing it.
	Set(doc *domain.SavedQuote) error

	// Delete removes the document with the given id. Deleting a missing
	// document is not an error.
	Delete(id string) error
}

// DocumentStore is the remote persistence contract for saved quotes.
// It deliberately exposes only the primitives the sync engine needs:
// point read, point write, point delete, an ownership-filtered ordered
// query, a transactional read-then-write, and a live-query subscription,
// plus a server-generated timestamp.
type DocumentStore interface {
	// Get reads a single document by id.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.SavedQuote, error)

	// Set writes a single document, creating or replacing it.
	Set(ctx context.Context, doc *domain.SavedQuote) error

	// Delete removes a document by id; missing documents are a no-op.
	Delete(ctx context.Context, id string) error

	// QueryOwned returns every document owned by userID, newest-saved-first.
	QueryOwned(ctx context.Context, userID string) ([]domain.SavedQuote, error)

	// RunTransaction executes fn atomically. If fn returns an error the
	// transaction's writes are discarded and the error is returned.
	RunTransaction(ctx context.Context, fn func(tx DocumentTx) error) error

	// Subscribe establishes a live feed of the owned, newest-first
	// collection. onSnapshot fires with the full snapshot after every
	// committed change (and once on subscribe); onError fires on transport
	// failure. Delivery scheduling (debouncing) is the caller's concern.
	Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.SavedQuote), onError func(error)) (Unsubscribe, error)

	// ServerTime returns the store's authoritative current time, used to
	// stamp SavedAt at commit.
	ServerTime() time.Time
}

// SnapshotCache is the local persistent fallback for the saved-quotes
// collection: one JSON blob under one fixed key. Write failures are logged
// by callers, never surfaced to users.
type SnapshotCache interface {
	// Load returns the last stored snapshot.
	// Returns domain.ErrNotFound when no snapshot has ever been written.
	Load(ctx context.Context) ([]domain.SavedQuote, error)

	// Store replaces the snapshot.
	Store(ctx context.Context, quotes []domain.SavedQuote) error
}

// Identity supplies the signed-in user for all saved-quote operations.
// An anonymous identity counts; the bootstrap is idempotent.
type Identity interface {
	// EnsureSignedIn signs in (anonymously if needed) and returns the user
	// id. Calling it when already signed in is a no-op returning the
	// existing id.
	EnsureSignedIn(ctx context.Context) (string, error)

	// UserID returns the current user id, or empty when not signed in.
	UserID() string
}

// ImageResolver deterministically maps a quote to a display-asset
// reference. The aggregation core only carries the reference through.
type ImageResolver interface {
	Resolve(q *domain.Quote) string
}
