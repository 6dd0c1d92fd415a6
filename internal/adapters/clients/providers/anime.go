package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/platform/logging"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

const (
	animeServiceName  = "anime-quotes"
	animeDefaultCount = 10
)

// AnimeProviderConfig contains configuration for the anime quote provider.
type AnimeProviderConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the anime quote API endpoint.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// AnimeProvider implements ports.QuoteProvider against the anime quote API.
//
// Unlike the other providers, every failure degrades to an empty result:
// the anime feed is best-effort and the UI treats "nothing fetched" and
// "fetch failed" identically. FetchQuotes therefore never returns a
// non-nil error.
type AnimeProvider struct {
	client *clients.Client
	logger *slog.Logger
}

// NewAnimeProvider creates a new anime quote provider.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewAnimeProvider(cfg AnimeProviderConfig) *AnimeProvider {
	if cfg.Client == nil {
		panic("AnimeProvider: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AnimeProvider{
		client: cfg.Client,
		logger: logger.With(slog.String("provider", animeServiceName)),
	}
}

// animeQuote is the external DTO from the anime quote API.
type animeQuote struct {
	Quote     string `json:"quote"`
	Character string `json:"character"`
	Show      string `json:"show"`
	ID        string `json:"_id"`
}

// Category implements ports.QuoteProvider.
func (p *AnimeProvider) Category() domain.Category {
	return domain.CategoryAnime
}

// FetchQuotes implements ports.QuoteProvider. opts.Search filters by show
// name upstream, opts.Character by speaking character.
func (p *AnimeProvider) FetchQuotes(ctx context.Context, opts ports.FetchOptions) ([]domain.Quote, error) {
	return p.fetch(ctx, opts.Character, opts.Search, opts.Count, opts.ExcludeIDs), nil
}

// GetQuotesByCharacter fetches quotes spoken by the given character.
func (p *AnimeProvider) GetQuotesByCharacter(ctx context.Context, character string, count int) []domain.Quote {
	return p.fetch(ctx, character, "", count, nil)
}

// GetQuotesByShow fetches quotes from the given show.
func (p *AnimeProvider) GetQuotesByShow(ctx context.Context, show string, count int) []domain.Quote {
	return p.fetch(ctx, "", show, count, nil)
}

// fetch performs the upstream call. All failures are logged and collapsed
// into an empty slice.
func (p *AnimeProvider) fetch(ctx context.Context, character, show string, count int, excludeIDs []string) []domain.Quote {
	if count <= 0 {
		count = animeDefaultCount
	}

	params := url.Values{}
	if character != "" {
		params.Set("character", character)
	}

	if show != "" {
		params.Set("show", show)
	}

	params.Set("random", strconv.Itoa(count))

	path := "/api/quotes?" + params.Encode()
	p.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", path))

	resp, err := p.client.Get(ctx, path)
	if err != nil {
		p.logger.WarnContext(ctx, "anime quote fetch failed", slog.Any("error", err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	p.logger.Log(ctx, logging.LevelTrace, "request complete",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		p.logger.WarnContext(ctx, "anime quote fetch failed",
			slog.Int("status", resp.StatusCode))

		return nil
	}

	external, err := decodeAnimeResponse(resp.Body)
	if err != nil {
		p.logger.WarnContext(ctx, "anime quote decode failed", slog.Any("error", err))
		return nil
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(external))
	quotes := make([]domain.Quote, 0, len(external))

	for i := range external {
		quote := formatAnimeQuote(&external[i])

		if _, ok := excluded[quote.ID]; ok {
			continue
		}

		if _, ok := seen[quote.ID]; ok {
			continue
		}

		seen[quote.ID] = struct{}{}
		quotes = append(quotes, quote)
	}

	p.logger.DebugContext(ctx, "fetched anime quotes", slog.Int("count", len(quotes)))

	return quotes
}

// decodeAnimeResponse tolerates both a bare object and an array, which the
// upstream alternates between depending on the query.
func decodeAnimeResponse(body io.Reader) ([]animeQuote, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding anime quote response: %w", err)
	}

	var list []animeQuote
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single animeQuote
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decoding anime quote response: %w", err)
	}

	return []animeQuote{single}, nil
}

// formatAnimeQuote translates the external DTO to a domain Quote.
func formatAnimeQuote(ext *animeQuote) domain.Quote {
	return domain.Quote{
		ID:       "anime-" + ext.ID,
		Text:     ext.Quote,
		Author:   ext.Character,
		Source:   ext.Show,
		Category: domain.CategoryAnime,
		Tags:     []string{},
	}
}

// Name implements ports.HealthChecker.
func (p *AnimeProvider) Name() string {
	return animeServiceName
}

// Check implements ports.HealthChecker by verifying upstream connectivity.
func (p *AnimeProvider) Check(ctx context.Context) error {
	resp, err := p.client.Get(ctx, "/api/quotes?random=1")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anime quote API returned status %d", resp.StatusCode)
	}

	return nil
}
