package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

func TestAnimeProvider_FetchQuotes_Normalizes(t *testing.T) {
	var gotRandom string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRandom = r.URL.Query().Get("random")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"quote": "Believe it!", "character": "Naruto Uzumaki", "show": "Naruto", "_id": "abc123"},
			{"quote": "People die when they are killed.", "character": "Shirou Emiya", "show": "Fate/stay night", "_id": "def456"},
		})
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 2})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "2", gotRandom)
	assert.Equal(t, "anime-abc123", quotes[0].ID)
	assert.Equal(t, "Naruto Uzumaki", quotes[0].Author)
	assert.Equal(t, "Naruto", quotes[0].Source)
	assert.Equal(t, domain.CategoryAnime, quotes[0].Category)
	assert.Empty(t, quotes[0].Tags)
}

func TestAnimeProvider_FetchQuotes_SingleObjectPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"quote": "x", "character": "c", "show": "s", "_id": "solo",
		})
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 1})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "anime-solo", quotes[0].ID)
}

func TestAnimeProvider_FetchQuotes_SwallowsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.NoError(t, err, "anime provider must never propagate fetch errors")
	assert.Empty(t, quotes)
}

func TestAnimeProvider_FetchQuotes_SwallowsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestAnimeProvider_GetQuotesByShow(t *testing.T) {
	var gotShow, gotCharacter string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotShow = r.URL.Query().Get("show")
		gotCharacter = r.URL.Query().Get("character")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"quote": "q", "character": "c", "show": "Naruto", "_id": "1"},
		})
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes := provider.GetQuotesByShow(context.Background(), "Naruto", 3)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Naruto", gotShow)
	assert.Empty(t, gotCharacter)
}

func TestAnimeProvider_GetQuotesByCharacter(t *testing.T) {
	var gotCharacter string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCharacter = r.URL.Query().Get("character")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"quote": "q", "character": "Levi", "show": "AoT", "_id": "2"},
		})
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes := provider.GetQuotesByCharacter(context.Background(), "Levi", 1)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Levi", gotCharacter)
}

func TestAnimeProvider_FetchQuotes_DedupesAndExcludes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"quote": "a", "character": "c", "show": "s", "_id": "1"},
			{"quote": "a again", "character": "c", "show": "s", "_id": "1"},
			{"quote": "b", "character": "c", "show": "s", "_id": "2"},
		})
	}))
	defer server.Close()

	provider := NewAnimeProvider(AnimeProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{
		Count:      5,
		ExcludeIDs: []string{"anime-2"},
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "anime-1", quotes[0].ID)
}
