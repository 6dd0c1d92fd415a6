package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/platform/logging"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

const (
	movieServiceName  = "movie-quotes"
	movieDefaultCount = 5
)

// MovieProviderConfig contains configuration for the movie quote provider.
type MovieProviderConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the movie quote API endpoint.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// MovieProvider implements ports.QuoteProvider against the movie quote API.
// The upstream returns its catalog as arrays-of-arrays with repeated ids;
// the adapter flattens, de-duplicates, filters the caller's exclusion set,
// shuffles, and trims to the requested count.
type MovieProvider struct {
	client *clients.Client
	logger *slog.Logger
}

// NewMovieProvider creates a new movie quote provider.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewMovieProvider(cfg MovieProviderConfig) *MovieProvider {
	if cfg.Client == nil {
		panic("MovieProvider: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MovieProvider{
		client: cfg.Client,
		logger: logger.With(slog.String("provider", movieServiceName)),
	}
}

// movieQuote is the external DTO from the movie quote API.
// Never exposed outside this adapter.
type movieQuote struct {
	ID          int    `json:"id"`
	Quote       string `json:"quote"`
	MovieTitle  string `json:"movie_title"`
	ActorName   string `json:"actor_name"`
	Category    string `json:"category"`
	PublishDate string `json:"publish_date"`
	Language    string `json:"language"`
	Author      string `json:"author"`
}

// movieResponse wraps the upstream payload: batches of quotes, not a flat
// list.
type movieResponse struct {
	Quotes [][]movieQuote `json:"Quotes"`
}

// Category implements ports.QuoteProvider.
func (p *MovieProvider) Category() domain.Category {
	return domain.CategoryMovie
}

// FetchQuotes implements ports.QuoteProvider.
//
// Without a search term it pulls the whole catalog and returns a uniformly
// random sample of opts.Count quotes. With one it hits the search endpoint
// and returns every match in upstream order.
func (p *MovieProvider) FetchQuotes(ctx context.Context, opts ports.FetchOptions) ([]domain.Quote, error) {
	path := "/quotes"
	operation := "fetch movie quotes"

	if opts.Search != "" {
		path = "/quotes/search?q=" + url.QueryEscape(opts.Search)
		operation = "search movie quotes"
	}

	p.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", path))

	resp, err := p.client.Get(ctx, path)
	if err != nil {
		return nil, mapClientError(err, movieServiceName, operation)
	}
	defer func() { _ = resp.Body.Close() }()

	p.logger.Log(ctx, logging.LevelTrace, "request complete",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatusCode(resp.StatusCode, movieServiceName, operation)
	}

	var external movieResponse
	if err := json.NewDecoder(resp.Body).Decode(&external); err != nil {
		return nil, fmt.Errorf("decoding movie quote response: %w", err)
	}

	batch := dedupeMovieBatch(external.Quotes)
	if len(batch) == 0 {
		return nil, domain.NewUnavailableError(movieServiceName, "empty response batch")
	}

	batch = filterExcluded(batch, opts.ExcludeIDs)

	if opts.Search == "" {
		count := opts.Count
		if count <= 0 {
			count = movieDefaultCount
		}

		shuffleQuotes(batch)

		if len(batch) > count {
			batch = batch[:count]
		}
	}

	quotes := make([]domain.Quote, 0, len(batch))
	for i := range batch {
		quotes = append(quotes, formatMovieQuote(&batch[i]))
	}

	p.logger.DebugContext(ctx, "fetched movie quotes", slog.Int("count", len(quotes)))

	return quotes, nil
}

// dedupeMovieBatch flattens the arrays-of-arrays payload and keeps the
// first occurrence of each upstream id. Empty inner batches are skipped.
func dedupeMovieBatch(batches [][]movieQuote) []movieQuote {
	seen := make(map[int]struct{})

	var flat []movieQuote

	for _, batch := range batches {
		for _, q := range batch {
			if _, ok := seen[q.ID]; ok {
				continue
			}

			seen[q.ID] = struct{}{}
			flat = append(flat, q)
		}
	}

	return flat
}

// filterExcluded drops quotes whose prefixed id is in the exclusion set.
func filterExcluded(batch []movieQuote, excludeIDs []string) []movieQuote {
	if len(excludeIDs) == 0 {
		return batch
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	kept := batch[:0]
	for _, q := range batch {
		if _, ok := excluded["movie-"+strconv.Itoa(q.ID)]; ok {
			continue
		}

		kept = append(kept, q)
	}

	return kept
}

// shuffleQuotes performs an in-place Fisher-Yates shuffle: walk backward
// from the last index, swapping each element with a uniformly chosen one at
// or before it. Every permutation is equally likely.
func shuffleQuotes(batch []movieQuote) {
	for i := len(batch) - 1; i > 0; i-- {
		j := rand.IntN(i + 1) //nolint:gosec // No need for crypto-grade randomness
		batch[i], batch[j] = batch[j], batch[i]
	}
}

// formatMovieQuote translates the external DTO to a domain Quote.
func formatMovieQuote(ext *movieQuote) domain.Quote {
	author := ext.ActorName
	if author == "" {
		author = ext.Author
	}

	source := "Unknown Movie"
	if ext.MovieTitle != "" {
		source = fmt.Sprintf("%s (%s)", ext.MovieTitle, ext.PublishDate)
	}

	return domain.Quote{
		ID:       "movie-" + strconv.Itoa(ext.ID),
		Text:     ext.Quote,
		Author:   author,
		Source:   source,
		Category: domain.CategoryMovie,
		Tags:     extractMovieTags(ext),
	}
}

// extractMovieTags derives the tag set for a movie quote: category parts,
// media type, era, and language. All lowercase, first occurrence wins.
func extractMovieTags(ext *movieQuote) []string {
	var tags []string

	if ext.Category != "" {
		for _, c := range strings.Split(strings.ToLower(ext.Category), "/") {
			tags = append(tags, strings.TrimSpace(c))
		}
	}

	if strings.Contains(strings.ToLower(ext.MovieTitle), "tv series") {
		tags = append(tags, "tv-series")
	} else {
		tags = append(tags, "movie")
	}

	if year, ok := parseYear(ext.PublishDate); ok {
		tags = append(tags, eraTag(year))
	}

	if lang := strings.ToLower(ext.Language); lang != "" && lang != "null" {
		tags = append(tags, lang)
	}

	return dedupeTags(tags)
}

// eraTag buckets a publish year into an era label.
func eraTag(year int) string {
	switch {
	case year < 1950:
		return "classic"
	case year < 1980:
		return "vintage"
	case year < 2000:
		return "retro"
	case year < 2010:
		return "modern"
	default:
		return "contemporary"
	}
}

// parseYear extracts the leading integer from a publish date such as
// "1994" or "1994-05-21".
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == 0 {
		return 0, false
	}

	year, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}

	return year, true
}

// dedupeTags removes duplicate tags keeping first-seen order.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	unique := tags[:0]

	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	return unique
}

// Name implements ports.HealthChecker.
func (p *MovieProvider) Name() string {
	return movieServiceName
}

// Check implements ports.HealthChecker by verifying upstream connectivity.
func (p *MovieProvider) Check(ctx context.Context) error {
	resp, err := p.client.Get(ctx, "/quotes")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("movie quote API returned status %d", resp.StatusCode)
	}

	return nil
}
