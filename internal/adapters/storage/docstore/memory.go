package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// MemoryStore implements ports.DocumentStore in memory. It backs tests and
// local development where no durable store is wanted. Transactions are
// serialized under one mutex, which gives the same atomicity guarantees as
// the SQLite store at this scale.
type MemoryStore struct {
	now func() time.Time

	mu      sync.Mutex
	docs    map[string]domain.SavedQuote
	subs    map[int]*subscriber
	nextSub int
}

// NewMemoryStore creates an empty in-memory document store.
// now defaults to time.Now when nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}

	return &MemoryStore{
		now:  now,
		docs: make(map[string]domain.SavedQuote),
		subs: make(map[int]*subscriber),
	}
}

// Get implements ports.DocumentStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.SavedQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.NewNotFoundError("saved quote", id)
	}

	return &doc, nil
}

// Set implements ports.DocumentStore.
func (s *MemoryStore) Set(_ context.Context, doc *domain.SavedQuote) error {
	s.mu.Lock()
	s.docs[doc.ID] = *doc
	targets, snapshot := s.snapshotLocked(doc.UserID)
	s.mu.Unlock()

	deliver(targets, snapshot)

	return nil
}

// Delete implements ports.DocumentStore. Missing documents are a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()

	doc, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	delete(s.docs, id)
	targets, snapshot := s.snapshotLocked(doc.UserID)
	s.mu.Unlock()

	deliver(targets, snapshot)

	return nil
}

// QueryOwned implements ports.DocumentStore.
func (s *MemoryStore) QueryOwned(_ context.Context, userID string) ([]domain.SavedQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownedLocked(userID), nil
}

// RunTransaction implements ports.DocumentStore. The whole transaction
// runs under the store mutex; writes land only when fn returns nil.
func (s *MemoryStore) RunTransaction(_ context.Context, fn func(tx ports.DocumentTx) error) error {
	s.mu.Lock()

	tx := &memoryTx{
		store:   s,
		writes:  make(map[string]*domain.SavedQuote),
		touched: make(map[string]struct{}),
	}

	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}

	for id, doc := range tx.writes {
		if doc == nil {
			delete(s.docs, id)
		} else {
			s.docs[id] = *doc
		}
	}

	type delivery struct {
		targets  []*subscriber
		snapshot []domain.SavedQuote
	}

	deliveries := make([]delivery, 0, len(tx.touched))
	for userID := range tx.touched {
		targets, snapshot := s.snapshotLocked(userID)
		deliveries = append(deliveries, delivery{targets, snapshot})
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		deliver(d.targets, d.snapshot)
	}

	return nil
}

// Subscribe implements ports.DocumentStore. The initial snapshot is
// delivered synchronously before Subscribe returns.
func (s *MemoryStore) Subscribe(_ context.Context, userID string, onSnapshot func([]domain.SavedQuote), onError func(error)) (ports.Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscriber{userID: userID, onSnapshot: onSnapshot, onError: onError}
	snapshot := s.ownedLocked(userID)
	s.mu.Unlock()

	onSnapshot(snapshot)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}

	return unsubscribe, nil
}

// ServerTime implements ports.DocumentStore.
func (s *MemoryStore) ServerTime() time.Time {
	return s.now().UTC()
}

// ownedLocked returns the owner's documents newest-saved-first.
// Callers must hold s.mu.
func (s *MemoryStore) ownedLocked(userID string) []domain.SavedQuote {
	var docs []domain.SavedQuote

	for _, doc := range s.docs {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].SavedAt.After(docs[j].SavedAt)
	})

	return docs
}

// snapshotLocked collects the owner's subscribers and current snapshot.
// Callers must hold s.mu.
func (s *MemoryStore) snapshotLocked(userID string) ([]*subscriber, []domain.SavedQuote) {
	var targets []*subscriber

	for _, sub := range s.subs {
		if sub.userID == userID {
			targets = append(targets, sub)
		}
	}

	if len(targets) == 0 {
		return nil, nil
	}

	return targets, s.ownedLocked(userID)
}

func deliver(targets []*subscriber, snapshot []domain.SavedQuote) {
	for _, sub := range targets {
		sub.onSnapshot(snapshot)
	}
}

// memoryTx implements ports.DocumentTx with buffered writes. A nil entry
// in writes marks a delete.
type memoryTx struct {
	store   *MemoryStore
	writes  map[string]*domain.SavedQuote
	touched map[string]struct{}
}

func (t *memoryTx) Get(id string) (*domain.SavedQuote, error) {
	if doc, ok := t.writes[id]; ok {
		if doc == nil {
			return nil, domain.NewNotFoundError("saved quote", id)
		}

		copied := *doc

		return &copied, nil
	}

	doc, ok := t.store.docs[id]
	if !ok {
		return nil, domain.NewNotFoundError("saved quote", id)
	}

	return &doc, nil
}

func (t *memoryTx) Set(doc *domain.SavedQuote) error {
	copied := *doc
	t.writes[doc.ID] = &copied
	t.touched[doc.UserID] = struct{}{}

	return nil
}

func (t *memoryTx) Delete(id string) error {
	doc, err := t.Get(id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}

		return err
	}

	t.writes[id] = nil
	t.touched[doc.UserID] = struct{}{}

	return nil
}
