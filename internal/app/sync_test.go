package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

func newTestSyncEngine(t *testing.T, store *flakyStore, cache *fakeCache, clock *fakeClock) *SyncEngine {
	t.Helper()

	return NewSyncEngine(SyncEngineConfig{
		Store:    store,
		Cache:    cache,
		Identity: &fakeIdentity{id: "user-a"},
		Now:      clock.Now,
	})
}

func TestSyncEngine_SaveQuote_StampsServerFields(t *testing.T) {
	serverTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newFlakyStore(func() time.Time { return serverTime })
	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(serverTime))

	saved, err := engine.SaveQuote(context.Background(), quote("movie-1"))
	require.NoError(t, err)

	assert.Equal(t, "user-a", saved.UserID)
	assert.True(t, serverTime.Equal(saved.SavedAt))
	assert.Equal(t, domain.SaveConfirmed, saved.SaveState)

	stored, err := store.Get(context.Background(), "movie-1")
	require.NoError(t, err)
	assert.Equal(t, "user-a", stored.UserID)
}

func TestSyncEngine_ServerTime(t *testing.T) {
	serverTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newFlakyStore(func() time.Time { return serverTime })
	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(serverTime))

	assert.True(t, serverTime.Equal(engine.ServerTime()),
		"provisional stamps must come from the store clock")
}

func TestSyncEngine_SaveQuote_IdempotentForSameUser(t *testing.T) {
	serverTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := newFlakyStore(func() time.Time { return serverTime })
	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(serverTime))
	ctx := context.Background()

	first, err := engine.SaveQuote(ctx, quote("movie-1"))
	require.NoError(t, err)

	second, err := engine.SaveQuote(ctx, quote("movie-1"))
	require.NoError(t, err, "saving twice must not error")
	assert.True(t, first.SavedAt.Equal(second.SavedAt), "existing record returned unchanged")

	owned, err := store.QueryOwned(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, owned, 1, "at most one durable record per (user, id)")
}

func TestSyncEngine_SaveQuote_TransactionFailure(t *testing.T) {
	store := newFlakyStore(nil)
	boom := errors.New("store down")
	store.failTransactions(boom)

	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(time.Now()))

	_, err := engine.SaveQuote(context.Background(), quote("movie-1"))
	require.ErrorIs(t, err, boom)
}

func TestSyncEngine_RemoveQuote(t *testing.T) {
	store := newFlakyStore(nil)
	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(time.Now()))
	ctx := context.Background()

	_, err := engine.SaveQuote(ctx, quote("movie-1"))
	require.NoError(t, err)

	require.NoError(t, engine.RemoveQuote(ctx, "movie-1"))

	_, err = store.Get(ctx, "movie-1")
	assert.True(t, domain.IsNotFound(err))

	// Removing a missing document is a silent no-op.
	require.NoError(t, engine.RemoveQuote(ctx, "movie-1"))
}

func TestSyncEngine_RemoveQuote_ForeignOwnedIsNoOp(t *testing.T) {
	store := newFlakyStore(nil)
	engine := newTestSyncEngine(t, store, &fakeCache{}, newFakeClock(time.Now()))
	ctx := context.Background()

	foreign := saved("movie-1")
	foreign.UserID = "user-b"
	require.NoError(t, store.Set(ctx, &foreign))

	require.NoError(t, engine.RemoveQuote(ctx, "movie-1"))

	stored, err := store.Get(ctx, "movie-1")
	require.NoError(t, err, "foreign-owned document must survive")
	assert.Equal(t, "user-b", stored.UserID)
}

func TestSyncEngine_LoadSavedQuotes_MirrorsToCache(t *testing.T) {
	store := newFlakyStore(nil)
	cache := &fakeCache{}
	engine := newTestSyncEngine(t, store, cache, newFakeClock(time.Now()))
	ctx := context.Background()

	_, err := engine.SaveQuote(ctx, quote("movie-1"))
	require.NoError(t, err)

	quotes, err := engine.LoadSavedQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	cached, err := engine.LoadCachedQuotes(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestSyncEngine_LoadSavedQuotes_CacheWriteFailureIsSwallowed(t *testing.T) {
	store := newFlakyStore(nil)
	cache := &fakeCache{storeErr: errors.New("disk full")}
	engine := newTestSyncEngine(t, store, cache, newFakeClock(time.Now()))
	ctx := context.Background()

	_, err := engine.SaveQuote(ctx, quote("movie-1"))
	require.NoError(t, err)

	quotes, err := engine.LoadSavedQuotes(ctx)
	require.NoError(t, err, "cache write failure must never surface")
	assert.Len(t, quotes, 1)
}

func TestSyncEngine_Subscribe_DebounceDropsInsideWindow(t *testing.T) {
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	store := newFlakyStore(clock.Now)
	cache := &fakeCache{}
	engine := newTestSyncEngine(t, store, cache, clock)
	ctx := context.Background()

	var deliveries int

	unsubscribe, err := engine.Subscribe(ctx,
		func([]domain.SavedQuote) { deliveries++ },
		func(err error) { t.Errorf("unexpected subscription error: %v", err) })
	require.NoError(t, err)
	defer unsubscribe()

	// Initial snapshot delivers immediately.
	require.Equal(t, 1, deliveries)

	emit := func(id string) {
		doc := saved(id)
		doc.SavedAt = clock.Now()
		require.NoError(t, store.Set(ctx, &doc))
	}

	clock.Advance(400 * time.Millisecond)
	emit("a")
	assert.Equal(t, 1, deliveries, "t=400ms falls inside the window")

	clock.Advance(500 * time.Millisecond)
	emit("b")
	assert.Equal(t, 1, deliveries, "t=900ms still inside; dropped updates do not extend the window")

	clock.Advance(200 * time.Millisecond)
	emit("c")
	assert.Equal(t, 2, deliveries, "t=1100ms is past the window")

	// The window resets from the delivery at t=1100ms.
	clock.Advance(900 * time.Millisecond)
	emit("d")
	assert.Equal(t, 2, deliveries)

	clock.Advance(200 * time.Millisecond)
	emit("e")
	assert.Equal(t, 3, deliveries)
}

func TestSyncEngine_Subscribe_DeliveredSnapshotsMirroredToCache(t *testing.T) {
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	store := newFlakyStore(clock.Now)
	cache := &fakeCache{}
	engine := newTestSyncEngine(t, store, cache, clock)
	ctx := context.Background()

	unsubscribe, err := engine.Subscribe(ctx, func([]domain.SavedQuote) {}, func(error) {})
	require.NoError(t, err)
	defer unsubscribe()

	storesAfterInitial := cache.storeCount()
	require.Equal(t, 1, storesAfterInitial, "initial snapshot is mirrored")

	// Dropped snapshot: no cache write.
	clock.Advance(100 * time.Millisecond)
	doc := saved("a")
	require.NoError(t, store.Set(ctx, &doc))
	assert.Equal(t, 1, cache.storeCount())

	// Delivered snapshot: mirrored.
	clock.Advance(2 * time.Second)
	doc2 := saved("b")
	require.NoError(t, store.Set(ctx, &doc2))
	assert.Equal(t, 2, cache.storeCount())
}

func TestSyncEngine_IdentityFailureBlocksOperations(t *testing.T) {
	boom := errors.New("auth down")
	engine := NewSyncEngine(SyncEngineConfig{
		Store:    newFlakyStore(nil),
		Cache:    &fakeCache{},
		Identity: &fakeIdentity{err: boom},
	})
	ctx := context.Background()

	_, err := engine.SaveQuote(ctx, quote("movie-1"))
	assert.ErrorIs(t, err, boom)

	err = engine.RemoveQuote(ctx, "movie-1")
	assert.ErrorIs(t, err, boom)

	_, err = engine.LoadSavedQuotes(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = engine.Subscribe(ctx, func([]domain.SavedQuote) {}, func(error) {})
	assert.ErrorIs(t, err, boom)
}
