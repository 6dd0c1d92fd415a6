package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// Low-water marks: a non-forced fetch is a no-op while the feed still
// holds more than cursor+K quotes. Anime runs a tighter buffer because its
// feed is thinned by the theme filter.
const (
	defaultLowWater      = 5
	animeLowWater        = 2
	movieFetchCount      = 5
	philosophyFetchCount = 5
	animeFetchCount      = 10
)

// ErrSavedUnavailable wraps the remote and cache errors when loading the
// saved collection failed on both paths.
var ErrSavedUnavailable = errors.New("saved quotes unavailable")

// FallbackError reports that a remote load failed but the offline snapshot
// was applied in its place. The operation's side effects happened (the
// cached copy is visible); the error carries the remote cause so callers
// can flag the degraded state. Unwrap exposes the cause.
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("serving offline saved quotes: %v", e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// ControllerConfig contains the aggregation controller's dependencies.
type ControllerConfig struct {
	// Store holds the aggregate quote state.
	Store *Store

	// Sync is the saved-quotes sync engine.
	Sync *SyncEngine

	// Movie serves the movie feed.
	Movie ports.QuoteProvider

	// Philosophy serves the philosophy feed and, theme-filtered, the anime
	// feed.
	Philosophy ports.QuoteProvider

	// Anime serves the anime search surface.
	Anime ports.QuoteProvider

	// Images resolves background art references.
	Images ports.ImageResolver

	// Flags gates feed enablement. Optional; nil enables every feed.
	Flags ports.FeatureFlags

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Controller is the orchestration layer the transport talks to. It owns
// pagination policy, provider fan-out, the optimistic save/rollback flow,
// and the saved-quote query surface.
type Controller struct {
	store      *Store
	sync       *SyncEngine
	movie      ports.QuoteProvider
	philosophy ports.QuoteProvider
	anime      ports.QuoteProvider
	images     ports.ImageResolver
	flags      ports.FeatureFlags
	logger     *slog.Logger

	unsubscribe ports.Unsubscribe
}

// NewController creates the aggregation controller.
// Panics when a required dependency is nil. Defaults logger to
// slog.Default() if nil.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Store == nil {
		panic("Controller: Store is required")
	}

	if cfg.Sync == nil {
		panic("Controller: Sync is required")
	}

	if cfg.Movie == nil || cfg.Philosophy == nil || cfg.Anime == nil {
		panic("Controller: all providers are required")
	}

	if cfg.Images == nil {
		panic("Controller: Images is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		store:      cfg.Store,
		sync:       cfg.Sync,
		movie:      cfg.Movie,
		philosophy: cfg.Philosophy,
		anime:      cfg.Anime,
		images:     cfg.Images,
		flags:      cfg.Flags,
		logger:     logger.With(slog.String("component", "app.Controller")),
	}
}

// Start signs in, establishes the live saved-quotes subscription, and
// loads the initial saved collection (falling back to the local cache).
func (c *Controller) Start(ctx context.Context) error {
	if _, err := c.sync.EnsureIdentity(ctx); err != nil {
		return err
	}

	unsubscribe, err := c.sync.Subscribe(ctx,
		func(quotes []domain.SavedQuote) {
			c.store.Dispatch(Action{Type: ActionSetSavedQuotes, Saved: quotes})
		},
		func(err error) {
			c.logger.WarnContext(ctx, "saved-quotes subscription error, using cache",
				slog.Any("error", err))

			cached, cacheErr := c.sync.LoadCachedQuotes(ctx)
			if cacheErr != nil {
				c.logger.WarnContext(ctx, "cache fallback failed", slog.Any("error", cacheErr))
				return
			}

			c.store.Dispatch(Action{Type: ActionSetSavedQuotes, Saved: cached})
		})
	if err != nil {
		return err
	}

	c.unsubscribe = unsubscribe

	return nil
}

// Stop tears down the live subscription.
func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// State returns the current aggregate state.
func (c *Controller) State() State {
	return c.store.State()
}

// IsQuoteSaved reports whether id is in the saved collection right now.
func (c *Controller) IsQuoteSaved(id string) bool {
	return c.store.State().IsQuoteSaved(id)
}

// lowWater returns the category's pagination threshold.
func lowWater(category domain.Category) int {
	if category == domain.CategoryAnime {
		return animeLowWater
	}

	return defaultLowWater
}

// FetchQuotes tops up one category feed.
//
// Unless force is set, the call is a no-op while the feed still holds more
// than cursor+K unread quotes. The first fetch for an empty feed raises
// IsLoading; later ones raise IsLoadingMore.
func (c *Controller) FetchQuotes(ctx context.Context, category domain.Category, force bool) error {
	if !category.Valid() {
		return domain.NewValidationError("category", fmt.Sprintf("unknown category %q", category))
	}

	if c.flags != nil && !c.flags.IsEnabled(ctx, "feeds."+string(category), true) {
		return domain.NewForbiddenError("fetch quotes",
			fmt.Sprintf("%s feed is disabled", category))
	}

	state := c.store.State()
	feed := state.Feed(category)

	if !force && len(feed) > state.Cursor+lowWater(category) {
		return nil
	}

	firstFetch := len(feed) == 0

	if firstFetch {
		c.store.Dispatch(Action{Type: ActionSetLoading, Flag: true})
	} else {
		c.store.Dispatch(Action{Type: ActionSetLoadingMore, Flag: true})
	}

	defer func() {
		c.store.Dispatch(Action{Type: ActionSetLoading, Flag: false})
		c.store.Dispatch(Action{Type: ActionSetLoadingMore, Flag: false})
	}()

	quotes, err := c.fetchCategory(ctx, category, state.SavedIDs())
	if err != nil {
		return err
	}

	for i := range quotes {
		quotes[i].BackgroundImage = c.images.Resolve(&quotes[i])
	}

	actionType := ActionAddQuotes
	if firstFetch {
		actionType = ActionSetQuotes
	}

	c.store.Dispatch(Action{Type: actionType, Category: category, Quotes: quotes})

	c.logger.DebugContext(ctx, "feed updated",
		slog.String("category", string(category)),
		slog.Int("fetched", len(quotes)))

	return nil
}

// fetchCategory fans out to the right provider.
//
// The anime feed is not served by the anime search API: it is philosophy
// quotes carrying a thematic tag, re-typed. Failures on that path are
// swallowed into an empty result like the anime provider's own policy.
func (c *Controller) fetchCategory(ctx context.Context, category domain.Category, savedIDs []string) ([]domain.Quote, error) {
	switch category {
	case domain.CategoryMovie:
		return c.movie.FetchQuotes(ctx, ports.FetchOptions{
			Count:      movieFetchCount,
			ExcludeIDs: savedIDs,
		})

	case domain.CategoryPhilosophy:
		return c.philosophy.FetchQuotes(ctx, ports.FetchOptions{
			Count:      philosophyFetchCount,
			ExcludeIDs: savedIDs,
		})

	case domain.CategoryAnime:
		quotes, err := c.philosophy.FetchQuotes(ctx, ports.FetchOptions{
			Count:      animeFetchCount,
			ExcludeIDs: savedIDs,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "anime feed fetch failed", slog.Any("error", err))
			return nil, nil
		}

		themed := make([]domain.Quote, 0, len(quotes))

		for _, q := range quotes {
			if !domain.HasTheme(q.Tags) {
				continue
			}

			q.Category = domain.CategoryAnime
			themed = append(themed, q)
		}

		return themed, nil

	default:
		return nil, domain.NewValidationError("category", fmt.Sprintf("unknown category %q", category))
	}
}

// SetCursor moves the read cursor and re-evaluates every non-empty feed's
// low-water mark. Advancing the cursor is the only implicit pagination
// trigger.
func (c *Controller) SetCursor(ctx context.Context, index int) {
	c.store.Dispatch(Action{Type: ActionSetCursor, Index: index})

	state := c.store.State()

	fetches := make([]func(context.Context) (struct{}, error), 0, len(domain.Categories()))

	for _, category := range domain.Categories() {
		if len(state.Feed(category)) == 0 {
			continue
		}

		fetches = append(fetches, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.FetchQuotes(ctx, category, false)
		})
	}

	for i, result := range ParallelPartial(ctx, fetches...) {
		if result.Err != nil {
			c.logger.WarnContext(ctx, "cursor-driven refetch failed",
				slog.Int("fetch", i),
				slog.Any("error", result.Err))
		}
	}
}

// WarmUp fetches all category feeds concurrently, tolerating individual
// failures. Used at startup so the first screen has content.
func (c *Controller) WarmUp(ctx context.Context) {
	fetches := make([]func(context.Context) (struct{}, error), 0, len(domain.Categories()))

	for _, category := range domain.Categories() {
		fetches = append(fetches, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.FetchQuotes(ctx, category, true)
		})
	}

	for _, result := range ParallelPartial(ctx, fetches...) {
		if result.Err != nil {
			c.logger.WarnContext(ctx, "warm-up fetch failed", slog.Any("error", result.Err))
		}
	}
}

// SaveQuote saves a quote optimistically: the entry lands in the store as
// pending, the remote transaction confirms it, and a remote failure rolls
// the optimistic entry back and propagates the error.
func (c *Controller) SaveQuote(ctx context.Context, quote domain.Quote) error {
	state := c.store.State()

	// In-memory pre-check. Cheap short-circuit; the transaction in the
	// sync engine remains the authoritative duplicate guard.
	for i := range state.Saved {
		if state.Saved[i].ID == quote.ID {
			return nil
		}
	}

	provisional := &domain.SavedQuote{
		Quote:     quote,
		SavedAt:   c.sync.ServerTime(),
		SaveState: domain.SavePending,
	}

	c.store.Dispatch(Action{Type: ActionAddSavedQuote, Entry: provisional})

	saved, err := c.sync.SaveQuote(ctx, quote)
	if err != nil {
		c.store.Dispatch(Action{Type: ActionRemoveSavedQuote, ID: quote.ID})
		return err
	}

	confirmed := *saved

	confirmed.SaveState, err = provisional.SaveState.Transition(domain.SaveConfirmed)
	if err != nil {
		// The subscription snapshot replaced the pending entry already;
		// the update below still lands the server-stamped record.
		c.logger.DebugContext(ctx, "save confirmation raced a snapshot",
			slog.String("quote_id", quote.ID))

		confirmed.SaveState = domain.SaveConfirmed
	}

	c.store.Dispatch(Action{Type: ActionUpdateSavedQuote, Entry: &confirmed})

	return nil
}

// RemoveQuote removes a saved quote optimistically. A failed remote
// remove is propagated but not rolled back; the next snapshot or load
// re-syncs the collection.
func (c *Controller) RemoveQuote(ctx context.Context, id string) error {
	c.store.Dispatch(Action{Type: ActionRemoveSavedQuote, ID: id})

	return c.sync.RemoveQuote(ctx, id)
}

// LoadSavedQuotes refreshes the saved collection from the remote store,
// falling back to the local cache when the remote is unreachable. A
// successful fallback still returns a *FallbackError wrapping the remote
// cause: the offline copy is visible, but the load did not succeed. Both
// paths failing returns ErrSavedUnavailable.
func (c *Controller) LoadSavedQuotes(ctx context.Context) error {
	quotes, err := c.sync.LoadSavedQuotes(ctx)
	if err == nil {
		c.store.Dispatch(Action{Type: ActionSetSavedQuotes, Saved: quotes})
		return nil
	}

	c.logger.WarnContext(ctx, "remote saved-quotes load failed, using cache",
		slog.Any("error", err))

	cached, cacheErr := c.sync.LoadCachedQuotes(ctx)
	if cacheErr != nil {
		return fmt.Errorf("%w: remote: %v, cache: %v", ErrSavedUnavailable, err, cacheErr)
	}

	c.store.Dispatch(Action{Type: ActionSetSavedQuotes, Saved: cached})

	return &FallbackError{Err: err}
}

// SearchAnimeQuotes queries the anime provider's search surface. Provider
// policy applies: failures come back as an empty result.
func (c *Controller) SearchAnimeQuotes(ctx context.Context, show, character string, count int) ([]domain.Quote, error) {
	quotes, err := c.anime.FetchQuotes(ctx, ports.FetchOptions{
		Count:     count,
		Search:    show,
		Character: character,
	})
	if err != nil {
		return nil, err
	}

	for i := range quotes {
		quotes[i].BackgroundImage = c.images.Resolve(&quotes[i])
	}

	return quotes, nil
}
