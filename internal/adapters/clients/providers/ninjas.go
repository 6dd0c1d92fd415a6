package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/platform/logging"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

const (
	ninjasServiceName  = "ninjas-quotes"
	ninjasDefaultCount = 5
)

// NinjasProviderConfig contains configuration for the philosophy quote
// provider backed by the API Ninjas quotes endpoint.
type NinjasProviderConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the API Ninjas endpoint and
	// its AuthFunc should inject the X-Api-Key header.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger

	// Now is the clock used when synthesizing quote ids.
	// Defaults to time.Now. Overridable in tests.
	Now func() time.Time
}

// NinjasProvider implements ports.QuoteProvider for the philosophy feed.
// The upstream hands out one random quote per call with no stable id, so
// the adapter loops to accumulate the requested count and synthesizes ids
// from the author, a timestamp, and a random suffix.
type NinjasProvider struct {
	client *clients.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewNinjasProvider creates a new philosophy quote provider.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewNinjasProvider(cfg NinjasProviderConfig) *NinjasProvider {
	if cfg.Client == nil {
		panic("NinjasProvider: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &NinjasProvider{
		client: cfg.Client,
		logger: logger.With(slog.String("provider", ninjasServiceName)),
		now:    now,
	}
}

// ninjasQuote is the external DTO from the API Ninjas quotes endpoint.
type ninjasQuote struct {
	Quote    string `json:"quote"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

// Category implements ports.QuoteProvider.
func (p *NinjasProvider) Category() domain.Category {
	return domain.CategoryPhilosophy
}

// FetchQuotes implements ports.QuoteProvider.
//
// The upstream returns a single quote per request, so the adapter issues
// opts.Count sequential calls and tolerates individual failures. It errors
// only when not a single quote could be fetched.
func (p *NinjasProvider) FetchQuotes(ctx context.Context, opts ports.FetchOptions) ([]domain.Quote, error) {
	count := opts.Count
	if count <= 0 {
		count = ninjasDefaultCount
	}

	excluded := make(map[string]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	quotes := make([]domain.Quote, 0, count)

	var lastErr error

	for i := 0; i < count; i++ {
		quote, err := p.fetchOne(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to fetch quote",
				slog.Int("attempt", i+1),
				slog.Any("error", err))
			lastErr = err

			continue
		}

		if _, ok := excluded[quote.ID]; ok {
			continue
		}

		quotes = append(quotes, *quote)
	}

	if len(quotes) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}

		return nil, domain.NewUnavailableError(ninjasServiceName, "failed to fetch any quotes")
	}

	p.logger.DebugContext(ctx, "fetched philosophy quotes", slog.Int("count", len(quotes)))

	return quotes, nil
}

// fetchOne pulls a single random quote from the upstream.
func (p *NinjasProvider) fetchOne(ctx context.Context) (*domain.Quote, error) {
	const path = "/quotes"
	p.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", path))

	resp, err := p.client.Get(ctx, path)
	if err != nil {
		return nil, mapClientError(err, ninjasServiceName, "fetch philosophy quote")
	}
	defer func() { _ = resp.Body.Close() }()

	p.logger.Log(ctx, logging.LevelTrace, "request complete",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatusCode(resp.StatusCode, ninjasServiceName, "fetch philosophy quote")
	}

	var external []ninjasQuote
	if err := json.NewDecoder(resp.Body).Decode(&external); err != nil {
		return nil, fmt.Errorf("decoding philosophy quote response: %w", err)
	}

	if len(external) == 0 {
		return nil, domain.NewUnavailableError(ninjasServiceName, "empty response")
	}

	quote := p.formatQuote(&external[0])

	return &quote, nil
}

// formatQuote translates the external DTO to a domain Quote. The upstream
// has no stable id, so one is synthesized from author, timestamp, and a
// random suffix.
func (p *NinjasProvider) formatQuote(ext *ninjasQuote) domain.Quote {
	id := fmt.Sprintf("%s-%d-%d", ext.Author, p.now().UnixMilli(),
		rand.Int64N(1_000_000_000)) //nolint:gosec // No need for crypto-grade randomness

	return domain.Quote{
		ID:       id,
		Text:     ext.Quote,
		Author:   ext.Author,
		Source:   ext.Category,
		Category: domain.CategoryPhilosophy,
		Tags:     domain.MatchThemes(ext.Quote),
	}
}

// Name implements ports.HealthChecker.
func (p *NinjasProvider) Name() string {
	return ninjasServiceName
}

// Check implements ports.HealthChecker by verifying upstream connectivity.
func (p *NinjasProvider) Check(ctx context.Context) error {
	resp, err := p.client.Get(ctx, "/quotes")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	return nil
}
