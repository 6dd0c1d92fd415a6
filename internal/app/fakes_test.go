package app

import (
	"context"
	"sync"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/adapters/storage/docstore"
	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// fakeIdentity is a ports.Identity that hands out a fixed user id.
type fakeIdentity struct {
	mu    sync.Mutex
	id    string
	err   error
	calls int
}

func (f *fakeIdentity) EnsureSignedIn(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return "", f.err
	}

	return f.id, nil
}

func (f *fakeIdentity) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.id
}

// fakeCache is an in-memory ports.SnapshotCache with injectable failures.
type fakeCache struct {
	mu       sync.Mutex
	data     []domain.SavedQuote
	has      bool
	loadErr  error
	storeErr error
	stores   int
}

func (f *fakeCache) Load(context.Context) ([]domain.SavedQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return nil, f.loadErr
	}

	if !f.has {
		return nil, domain.NewNotFoundError("saved quotes snapshot", "")
	}

	return f.data, nil
}

func (f *fakeCache) Store(_ context.Context, quotes []domain.SavedQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.storeErr != nil {
		return f.storeErr
	}

	f.data = quotes
	f.has = true
	f.stores++

	return nil
}

func (f *fakeCache) storeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stores
}

// flakyStore wraps a real memory store with injectable failures and a
// fixed server clock.
type flakyStore struct {
	*docstore.MemoryStore

	mu       sync.Mutex
	txErr    error
	queryErr error
	subErr   error
}

func newFlakyStore(now func() time.Time) *flakyStore {
	return &flakyStore{MemoryStore: docstore.NewMemoryStore(now)}
}

func (f *flakyStore) failTransactions(err error) {
	f.mu.Lock()
	f.txErr = err
	f.mu.Unlock()
}

func (f *flakyStore) failQueries(err error) {
	f.mu.Lock()
	f.queryErr = err
	f.mu.Unlock()
}

func (f *flakyStore) RunTransaction(ctx context.Context, fn func(tx ports.DocumentTx) error) error {
	f.mu.Lock()
	err := f.txErr
	f.mu.Unlock()

	if err != nil {
		return err
	}

	return f.MemoryStore.RunTransaction(ctx, fn)
}

func (f *flakyStore) QueryOwned(ctx context.Context, userID string) ([]domain.SavedQuote, error) {
	f.mu.Lock()
	err := f.queryErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return f.MemoryStore.QueryOwned(ctx, userID)
}

func (f *flakyStore) Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.SavedQuote), onError func(error)) (ports.Unsubscribe, error) {
	f.mu.Lock()
	err := f.subErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return f.MemoryStore.Subscribe(ctx, userID, onSnapshot, onError)
}

// fakeClock is a hand-advanced clock for debounce tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider is a ports.QuoteProvider returning canned batches.
type fakeProvider struct {
	mu       sync.Mutex
	category domain.Category
	batches  [][]domain.Quote
	err      error
	calls    int
	lastOpts ports.FetchOptions
	onFetch  func()
}

func (f *fakeProvider) FetchQuotes(_ context.Context, opts ports.FetchOptions) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastOpts = opts

	if f.onFetch != nil {
		f.onFetch()
	}

	if f.err != nil {
		return nil, f.err
	}

	if len(f.batches) == 0 {
		return nil, nil
	}

	batch := f.batches[0]
	if len(f.batches) > 1 {
		f.batches = f.batches[1:]
	}

	// Honor the exclusion contract the way real providers do.
	excluded := make(map[string]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	out := make([]domain.Quote, 0, len(batch))

	for _, q := range batch {
		if _, ok := excluded[q.ID]; !ok {
			out = append(out, q)
		}
	}

	return out, nil
}

func (f *fakeProvider) Category() domain.Category {
	return f.category
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// fakeImages resolves every quote to a predictable reference.
type fakeImages struct{}

func (fakeImages) Resolve(q *domain.Quote) string {
	return "img:" + q.ID
}

// fakeFlags resolves listed flags and defaults the rest.
type fakeFlags map[string]bool

func (f fakeFlags) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := f[flag]; ok {
		return v
	}

	return defaultValue
}
