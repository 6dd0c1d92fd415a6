// Package images resolves display-asset references for quotes. The
// aggregation core only carries the reference through; picking the asset
// is a deterministic function of the quote id so the same quote always
// renders on the same background.
package images

import (
	"fmt"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// Default asset pool sizes, matching the bundled art sets.
const (
	defaultAnimeAssets   = 12
	defaultHistoryAssets = 16
)

// Resolver implements ports.ImageResolver. Anime quotes draw from the
// anime art set; everything else draws from the history set.
type Resolver struct {
	animeAssets   int
	historyAssets int
}

// NewResolver creates an image resolver over the default asset pools.
func NewResolver() *Resolver {
	return &Resolver{
		animeAssets:   defaultAnimeAssets,
		historyAssets: defaultHistoryAssets,
	}
}

// Resolve implements ports.ImageResolver.
func (r *Resolver) Resolve(q *domain.Quote) string {
	set, size := "history", r.historyAssets
	if q.Category == domain.CategoryAnime {
		set, size = "anime", r.animeAssets
	}

	return fmt.Sprintf("assets/quotes/%s/%d.jpg", set, hashString(q.ID)%size)
}

// hashString is the 32-bit shift-and-subtract string hash used to pick an
// asset index. The absolute value keeps the index non-negative.
func hashString(s string) int {
	var hash int32

	for _, c := range s {
		hash = (hash << 5) - hash + c
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}

	return int(abs)
}
