// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrConflict, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// FetchOptions carries the caller-side hints for a provider fetch.
type FetchOptions struct {
	// Count is the desired number of quotes. Providers may return fewer when
	// the upstream batch is smaller.
	Count int

	// Search is an optional free-text term. Providers without a search
	// surface ignore it.
	Search string

	// Character narrows an anime search to a speaking character. Only the
	// anime adapter honors it.
	Character string

	// ExcludeIDs are quote ids (typically the user's saved set) that must
	// not appear in the result. The provider filters before returning;
	// the caller never re-filters.
	ExcludeIDs []string
}

// QuoteProvider is implemented by each external quote API adapter.
//
// Error policy is part of each adapter's contract, not of this interface:
// the movie and philosophy adapters propagate transport failures as domain
// errors, while the anime adapter degrades to an empty result. Callers must
// not assume a uniform policy.
type QuoteProvider interface {
	// FetchQuotes returns normalized quotes for this provider's category.
	// The result contains no id from opts.ExcludeIDs and no two elements
	// sharing an id.
	FetchQuotes(ctx context.Context, opts FetchOptions) ([]domain.Quote, error)

	// Category returns the feed category this provider serves.
	Category() domain.Category
}
