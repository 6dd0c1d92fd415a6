package app

import (
	"sync"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// State is the aggregate quote state: one feed per category, the saved
// collection, loading flags, and the read cursor. Values are treated as
// immutable; Reduce returns a fresh State and never mutates its input.
type State struct {
	// Feeds holds the per-category quote feeds in fetch order.
	Feeds map[domain.Category][]domain.Quote

	// Saved is the favorites collection, newest-first, unique by id.
	Saved []domain.SavedQuote

	// IsLoading is true only while an empty feed has a fetch in flight.
	IsLoading bool

	// IsLoadingMore is true while a non-empty feed is appending a page.
	IsLoadingMore bool

	// Cursor is the read index into whichever feed the UI renders.
	// The reducer performs no bounds checks; consumers clamp before
	// indexing.
	Cursor int
}

// NewState returns the empty initial state.
func NewState() State {
	feeds := make(map[domain.Category][]domain.Quote, len(domain.Categories()))
	for _, c := range domain.Categories() {
		feeds[c] = nil
	}

	return State{Feeds: feeds}
}

// Feed returns the feed for a category.
func (s State) Feed(category domain.Category) []domain.Quote {
	return s.Feeds[category]
}

// IsQuoteSaved reports whether the saved collection contains id.
func (s State) IsQuoteSaved(id string) bool {
	for i := range s.Saved {
		if s.Saved[i].ID == id {
			return true
		}
	}

	return false
}

// SavedIDs returns the ids of the saved collection, used as the provider
// exclusion set.
func (s State) SavedIDs() []string {
	ids := make([]string, 0, len(s.Saved))
	for i := range s.Saved {
		ids = append(ids, s.Saved[i].ID)
	}

	return ids
}

// ActionType enumerates the state transitions.
type ActionType string

const (
	// ActionSetQuotes replaces a category feed with the de-duplicated
	// payload.
	ActionSetQuotes ActionType = "set_quotes"

	// ActionAddQuotes appends the payload to a category feed, keeping the
	// first occurrence of each id.
	ActionAddQuotes ActionType = "add_quotes"

	// ActionSetSavedQuotes replaces the saved collection. Used on
	// subscription snapshots and cache-fallback loads.
	ActionSetSavedQuotes ActionType = "set_saved_quotes"

	// ActionAddSavedQuote prepends one saved quote; a no-op when the id is
	// already present.
	ActionAddSavedQuote ActionType = "add_saved_quote"

	// ActionUpdateSavedQuote replaces the entry sharing the payload's id in
	// place. A missing id inserts instead, so a confirmation landing after
	// a snapshot replaced the collection is never lost.
	ActionUpdateSavedQuote ActionType = "update_saved_quote"

	// ActionRemoveSavedQuote drops the entry with the given id; a no-op
	// when absent.
	ActionRemoveSavedQuote ActionType = "remove_saved_quote"

	// ActionSetLoading sets the first-fetch loading flag.
	ActionSetLoading ActionType = "set_loading"

	// ActionSetLoadingMore sets the pagination loading flag.
	ActionSetLoadingMore ActionType = "set_loading_more"

	// ActionSetCursor sets the read cursor.
	ActionSetCursor ActionType = "set_cursor"
)

// Action is one state transition request. Only the fields relevant to the
// Type are read.
type Action struct {
	Type     ActionType
	Category domain.Category
	Quotes   []domain.Quote
	Saved    []domain.SavedQuote
	Entry    *domain.SavedQuote
	ID       string
	Flag     bool
	Index    int
}

// Reduce applies one action and returns the next state. It is the only
// code path that derives new aggregate state. Unknown action types return
// the state unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSetQuotes:
		return s.withFeed(a.Category, dedupeQuotes(a.Quotes))

	case ActionAddQuotes:
		feed := s.Feeds[a.Category]
		merged := make([]domain.Quote, 0, len(feed)+len(a.Quotes))
		merged = append(merged, feed...)
		merged = append(merged, a.Quotes...)

		return s.withFeed(a.Category, dedupeQuotes(merged))

	case ActionSetSavedQuotes:
		s.Saved = dedupeSaved(a.Saved)
		return s

	case ActionAddSavedQuote:
		if a.Entry == nil || s.IsQuoteSaved(a.Entry.ID) {
			return s
		}

		saved := make([]domain.SavedQuote, 0, len(s.Saved)+1)
		saved = append(saved, *a.Entry)
		saved = append(saved, s.Saved...)
		s.Saved = saved

		return s

	case ActionUpdateSavedQuote:
		if a.Entry == nil {
			return s
		}

		for i := range s.Saved {
			if s.Saved[i].ID == a.Entry.ID {
				saved := make([]domain.SavedQuote, len(s.Saved))
				copy(saved, s.Saved)
				saved[i] = *a.Entry
				s.Saved = saved

				return s
			}
		}

		// Unknown id: fall through to an insert.
		return Reduce(s, Action{Type: ActionAddSavedQuote, Entry: a.Entry})

	case ActionRemoveSavedQuote:
		saved := make([]domain.SavedQuote, 0, len(s.Saved))
		for i := range s.Saved {
			if s.Saved[i].ID != a.ID {
				saved = append(saved, s.Saved[i])
			}
		}
		s.Saved = saved

		return s

	case ActionSetLoading:
		s.IsLoading = a.Flag
		return s

	case ActionSetLoadingMore:
		s.IsLoadingMore = a.Flag
		return s

	case ActionSetCursor:
		s.Cursor = a.Index
		return s

	default:
		return s
	}
}

// withFeed returns a copy of the state with one feed replaced. The feeds
// map is copied so the previous state stays valid.
func (s State) withFeed(category domain.Category, feed []domain.Quote) State {
	feeds := make(map[domain.Category][]domain.Quote, len(s.Feeds))
	for c, f := range s.Feeds {
		feeds[c] = f
	}

	feeds[category] = feed
	s.Feeds = feeds

	return s
}

// dedupeQuotes keeps the first occurrence of each id. One pass, one
// seen-set.
func dedupeQuotes(quotes []domain.Quote) []domain.Quote {
	seen := make(map[string]struct{}, len(quotes))
	unique := make([]domain.Quote, 0, len(quotes))

	for i := range quotes {
		if _, ok := seen[quotes[i].ID]; ok {
			continue
		}

		seen[quotes[i].ID] = struct{}{}
		unique = append(unique, quotes[i])
	}

	return unique
}

// dedupeSaved keeps the first occurrence of each id.
func dedupeSaved(quotes []domain.SavedQuote) []domain.SavedQuote {
	seen := make(map[string]struct{}, len(quotes))
	unique := make([]domain.SavedQuote, 0, len(quotes))

	for i := range quotes {
		if _, ok := seen[quotes[i].ID]; ok {
			continue
		}

		seen[quotes[i].ID] = struct{}{}
		unique = append(unique, quotes[i])
	}

	return unique
}

// Store serializes all state transitions through Reduce under one mutex,
// giving the rest of the service a single-writer view of the aggregate.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store holding the initial state.
func NewStore() *Store {
	return &Store{state: NewState()}
}

// Dispatch applies an action and returns the resulting state.
func (st *Store) Dispatch(a Action) State {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = Reduce(st.state, a)

	return st.state
}

// State returns the current state.
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.state
}
