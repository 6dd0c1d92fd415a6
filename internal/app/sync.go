package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// defaultDebounceWindow is how long delivered subscription updates
// suppress subsequent ones.
const defaultDebounceWindow = time.Second

// SyncEngineConfig contains the sync engine's dependencies.
type SyncEngineConfig struct {
	// Store is the remote document store for saved quotes.
	Store ports.DocumentStore

	// Cache is the local fallback snapshot cache.
	Cache ports.SnapshotCache

	// Identity supplies the signed-in user.
	Identity ports.Identity

	// Logger is the structured logger.
	Logger *slog.Logger

	// DebounceWindow overrides the subscription debounce window.
	// Defaults to one second.
	DebounceWindow time.Duration

	// Now is the debounce clock. Defaults to time.Now. Overridable in
	// tests.
	Now func() time.Time
}

// SyncEngine owns all saved-quote interaction with the remote document
// store: the transactional save guard, idempotent removal, the debounced
// live subscription, and the local-cache fallback path.
type SyncEngine struct {
	store    ports.DocumentStore
	cache    ports.SnapshotCache
	identity ports.Identity
	logger   *slog.Logger
	window   time.Duration
	now      func() time.Time
}

// NewSyncEngine creates a sync engine.
// Panics if Store, Cache, or Identity is nil. Defaults logger to
// slog.Default() if nil.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	if cfg.Store == nil {
		panic("SyncEngine: Store is required")
	}

	if cfg.Cache == nil {
		panic("SyncEngine: Cache is required")
	}

	if cfg.Identity == nil {
		panic("SyncEngine: Identity is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	window := cfg.DebounceWindow
	if window <= 0 {
		window = defaultDebounceWindow
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SyncEngine{
		store:    cfg.Store,
		cache:    cfg.Cache,
		identity: cfg.Identity,
		logger:   logger.With(slog.String("component", "app.SyncEngine")),
		window:   window,
		now:      now,
	}
}

// EnsureIdentity signs the user in (anonymously if needed) and returns
// the user id. Idempotent.
func (e *SyncEngine) EnsureIdentity(ctx context.Context) (string, error) {
	return e.identity.EnsureSignedIn(ctx)
}

// ServerTime returns the backing store's authoritative clock. Callers use
// it to stamp provisional entries so they sort consistently with records
// the store timestamps itself.
func (e *SyncEngine) ServerTime() time.Time {
	return e.store.ServerTime()
}

// SaveQuote durably saves a quote for the current user and returns the
// stored record.
//
// At most one durable record exists per (user, quote id): the transaction
// re-reads the document and, when it already belongs to the same user,
// returns it unchanged instead of writing. Saving twice never creates a
// second record and never errors. Any in-memory pre-check the caller did
// is an optimization only; this check is the authoritative guard.
func (e *SyncEngine) SaveQuote(ctx context.Context, quote domain.Quote) (*domain.SavedQuote, error) {
	userID, err := e.EnsureIdentity(ctx)
	if err != nil {
		return nil, err
	}

	var saved *domain.SavedQuote

	err = e.store.RunTransaction(ctx, func(tx ports.DocumentTx) error {
		existing, err := tx.Get(quote.ID)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}

		if existing != nil && existing.UserID == userID {
			saved = existing
			return nil
		}

		doc := &domain.SavedQuote{
			Quote:     quote,
			UserID:    userID,
			SavedAt:   e.store.ServerTime(),
			SaveState: domain.SaveConfirmed,
		}

		if err := tx.Set(doc); err != nil {
			return err
		}

		saved = doc

		return nil
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "save transaction failed",
			slog.String("quote_id", quote.ID),
			slog.Any("error", err))

		return nil, err
	}

	e.logger.DebugContext(ctx, "quote saved",
		slog.String("quote_id", quote.ID),
		slog.String("user_id", userID))

	return saved, nil
}

// RemoveQuote deletes the user's saved record for id. Removing a missing
// document, or one owned by another user, is a silent no-op.
func (e *SyncEngine) RemoveQuote(ctx context.Context, id string) error {
	userID, err := e.EnsureIdentity(ctx)
	if err != nil {
		return err
	}

	err = e.store.RunTransaction(ctx, func(tx ports.DocumentTx) error {
		existing, err := tx.Get(id)
		if domain.IsNotFound(err) {
			return nil
		}

		if err != nil {
			return err
		}

		if existing.UserID != userID {
			return nil
		}

		return tx.Delete(id)
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "remove transaction failed",
			slog.String("quote_id", id),
			slog.Any("error", err))

		return err
	}

	e.logger.DebugContext(ctx, "quote removed", slog.String("quote_id", id))

	return nil
}

// LoadSavedQuotes fetches the user's saved collection, newest-first, and
// mirrors the result into the local cache. Callers fall back to
// LoadCachedQuotes when this fails.
func (e *SyncEngine) LoadSavedQuotes(ctx context.Context) ([]domain.SavedQuote, error) {
	userID, err := e.EnsureIdentity(ctx)
	if err != nil {
		return nil, err
	}

	quotes, err := e.store.QueryOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.mirrorToCache(ctx, quotes)

	return quotes, nil
}

// LoadCachedQuotes returns the last snapshot written to the local cache.
func (e *SyncEngine) LoadCachedQuotes(ctx context.Context) ([]domain.SavedQuote, error) {
	return e.cache.Load(ctx)
}

// Subscribe establishes the debounced live feed of the saved collection.
//
// After a snapshot is delivered, snapshots arriving within the debounce
// window are dropped outright, not queued. The window resets only when a
// snapshot is actually delivered. Every delivered snapshot is also
// mirrored into the local cache. Transport failures reach onError; the
// caller is expected to fall back to LoadCachedQuotes.
func (e *SyncEngine) Subscribe(ctx context.Context, onUpdate func([]domain.SavedQuote), onError func(error)) (ports.Unsubscribe, error) {
	userID, err := e.EnsureIdentity(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu            sync.Mutex
		lastDelivered time.Time
	)

	onSnapshot := func(quotes []domain.SavedQuote) {
		mu.Lock()
		now := e.now()
		if !lastDelivered.IsZero() && now.Sub(lastDelivered) < e.window {
			mu.Unlock()
			e.logger.DebugContext(ctx, "dropped snapshot inside debounce window",
				slog.Int("count", len(quotes)))

			return
		}

		lastDelivered = now
		mu.Unlock()

		onUpdate(quotes)
		e.mirrorToCache(ctx, quotes)
	}

	return e.store.Subscribe(ctx, userID, onSnapshot, onError)
}

// mirrorToCache writes the snapshot to the local fallback cache. Failures
// are logged, never surfaced; the cache is backup, not source of truth.
func (e *SyncEngine) mirrorToCache(ctx context.Context, quotes []domain.SavedQuote) {
	if err := e.cache.Store(ctx, quotes); err != nil {
		e.logger.WarnContext(ctx, "failed to mirror saved quotes to cache",
			slog.Int("count", len(quotes)),
			slog.Any("error", err))
	}
}
