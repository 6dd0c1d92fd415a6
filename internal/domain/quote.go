// Package domain contains core business entities and rules.
package domain

import "time"

// Category identifies which feed a quote belongs to.
type Category string

const (
	CategoryMovie      Category = "movie"
	CategoryAnime      Category = "anime"
	CategoryPhilosophy Category = "philosophy"
)

// Categories lists all known feed categories.
func Categories() []Category {
	return []Category{CategoryMovie, CategoryAnime, CategoryPhilosophy}
}

// Valid reports whether the category is one of the known feed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMovie, CategoryAnime, CategoryPhilosophy:
		return true
	default:
		return false
	}
}

// Quote is the canonical normalized quote entity.
// Provider adapters construct quotes at fetch time; a quote is immutable
// afterwards and is never persisted unless explicitly saved.
type Quote struct {
	// ID is globally unique within its origin namespace. Providers prefix
	// their ids ("movie-42", "anime-<hash>") or synthesize one when the
	// upstream API has no stable identifier.
	ID string `json:"id"`

	// Text is the quote body. Never empty for a valid quote.
	Text string `json:"text"`

	// Author is who said or wrote the quote. May be empty when unknown.
	Author string `json:"author"`

	// Source is the human-readable origin (movie title and year, show name,
	// or category for philosophy quotes).
	Source string `json:"source"`

	// Category is the feed this quote belongs to.
	Category Category `json:"type"`

	// Tags are lowercase thematic/category keywords, de-duplicated,
	// insertion-ordered.
	Tags []string `json:"tags,omitempty"`

	// BackgroundImage is an opaque display-asset reference resolved by the
	// image collaborator. Carried through untouched.
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

// SavedQuote is a Quote plus the persistence metadata stamped when the
// quote is durably committed to the remote store.
type SavedQuote struct {
	Quote

	// UserID is the owning identity. Required on every persisted record.
	UserID string `json:"userId"`

	// SavedAt is assigned by the store at commit time. A client-side value
	// is only ever provisional (while the save is pending).
	SavedAt time.Time `json:"savedAt"`

	// SaveState tracks the optimistic-save lifecycle. Confirmed is the zero
	// value, which is what subscription snapshots and loads carry.
	// Never written to durable storage.
	SaveState SaveState `json:"-"`
}

// Saving reports whether this entry is an optimistic insert still awaiting
// remote confirmation. Used to block duplicate concurrent save attempts.
func (s *SavedQuote) Saving() bool {
	return s.SaveState == SavePending
}
