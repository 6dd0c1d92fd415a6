package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/platform/config"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// newTestClient builds an HTTP client pointed at a test server with retries
// disabled so call counts stay predictable.
func newTestClient(t *testing.T, baseURL string) *clients.Client {
	t.Helper()

	client, err := clients.New(&clients.Config{
		BaseURL:     baseURL,
		ServiceName: "test-upstream",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   100,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
	})
	require.NoError(t, err)

	return client
}

func movieServer(t *testing.T, batches [][]map[string]any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{"Quotes": batches})
		require.NoError(t, err)
	}))
}

func TestMovieProvider_FetchQuotes_NormalizesAndTags(t *testing.T) {
	server := movieServer(t, [][]map[string]any{{
		{
			"id":           1,
			"quote":        "Here's looking at you, kid.",
			"movie_title":  "Casablanca",
			"actor_name":   "Humphrey Bogart",
			"category":     "Drama/Romance",
			"publish_date": "1942",
			"language":     "English",
		},
	}})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "movie-1", q.ID)
	assert.Equal(t, "Here's looking at you, kid.", q.Text)
	assert.Equal(t, "Humphrey Bogart", q.Author)
	assert.Equal(t, "Casablanca (1942)", q.Source)
	assert.Equal(t, domain.CategoryMovie, q.Category)
	assert.Equal(t, []string{"drama", "romance", "movie", "classic", "english"}, q.Tags)
}

func TestMovieProvider_FetchQuotes_FlattensAndDedupes(t *testing.T) {
	shared := map[string]any{"id": 7, "quote": "dup", "movie_title": "X", "publish_date": "2001"}
	server := movieServer(t, [][]map[string]any{
		{shared, {"id": 8, "quote": "a", "movie_title": "X", "publish_date": "2001"}},
		{shared, {"id": 9, "quote": "b", "movie_title": "X", "publish_date": "2001"}},
	})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 10})
	require.NoError(t, err)
	require.Len(t, quotes, 3, "duplicate upstream ids must collapse to one survivor")

	seen := make(map[string]int)
	for _, q := range quotes {
		seen[q.ID]++
	}

	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestMovieProvider_FetchQuotes_ExcludesSavedIDs(t *testing.T) {
	server := movieServer(t, [][]map[string]any{{
		{"id": 1, "quote": "a", "movie_title": "X", "publish_date": "2001"},
		{"id": 2, "quote": "b", "movie_title": "X", "publish_date": "2001"},
		{"id": 3, "quote": "c", "movie_title": "X", "publish_date": "2001"},
	}})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{
		Count:      10,
		ExcludeIDs: []string{"movie-2"},
	})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	for _, q := range quotes {
		assert.NotEqual(t, "movie-2", q.ID)
	}
}

func TestMovieProvider_FetchQuotes_TrimsToCount(t *testing.T) {
	batch := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		batch = append(batch, map[string]any{
			"id": i, "quote": "q", "movie_title": "X", "publish_date": "2001",
		})
	}

	server := movieServer(t, [][]map[string]any{batch})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 4})
	require.NoError(t, err)
	assert.Len(t, quotes, 4)

	seen := make(map[string]struct{})
	for _, q := range quotes {
		_, dup := seen[q.ID]
		assert.False(t, dup, "sample must not repeat ids")
		seen[q.ID] = struct{}{}
	}
}

func TestMovieProvider_FetchQuotes_Search(t *testing.T) {
	var gotPath, gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"Quotes": [][]map[string]any{{
			{"id": 1, "quote": "a", "movie_title": "X", "publish_date": "2001"},
			{"id": 2, "quote": "b", "movie_title": "X", "publish_date": "2001"},
		}}})
	}))
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{
		Count:  1,
		Search: "love story",
	})
	require.NoError(t, err)

	assert.Equal(t, "/quotes/search", gotPath)
	assert.Equal(t, "love story", gotQuery)
	// Search results are returned whole, not sampled down to Count.
	assert.Len(t, quotes, 2)
}

func TestMovieProvider_FetchQuotes_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	_, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestMovieProvider_FetchQuotes_EmptyBatch(t *testing.T) {
	server := movieServer(t, [][]map[string]any{})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	_, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestMovieProvider_FetchQuotes_SkipsEmptyLeadingBatch(t *testing.T) {
	server := movieServer(t, [][]map[string]any{
		{},
		{{"id": 7, "quote": "x", "movie_title": "M", "actor_name": "A", "publish_date": "1994"}},
	})
	defer server.Close()

	provider := NewMovieProvider(MovieProviderConfig{Client: newTestClient(t, server.URL)})

	quotes, err := provider.FetchQuotes(context.Background(), ports.FetchOptions{Count: 5})
	require.NoError(t, err, "an empty first batch must not reject the payload")
	require.Len(t, quotes, 1)
	assert.Equal(t, "movie-7", quotes[0].ID)
}

func TestEraTag(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{1942, "classic"},
		{1949, "classic"},
		{1950, "vintage"},
		{1975, "vintage"},
		{1980, "retro"},
		{1999, "retro"},
		{2000, "modern"},
		{2009, "modern"},
		{2010, "contemporary"},
		{2015, "contemporary"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, eraTag(tt.year), "year %d", tt.year)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1994", 1994, true},
		{"1994-05-21", 1994, true},
		{" 2001 ", 2001, true},
		{"unknown", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseYear(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExtractMovieTags_TVSeriesAndNullLanguage(t *testing.T) {
	tags := extractMovieTags(&movieQuote{
		MovieTitle:  "Breaking Bad (TV Series)",
		Category:    "Crime/Drama/Crime",
		PublishDate: "2008",
		Language:    "null",
	})

	assert.Equal(t, []string{"crime", "drama", "tv-series", "modern"}, tags)
}

func TestShuffleQuotes_PreservesElements(t *testing.T) {
	batch := make([]movieQuote, 20)
	for i := range batch {
		batch[i] = movieQuote{ID: i}
	}

	shuffleQuotes(batch)

	require.Len(t, batch, 20)

	seen := make(map[int]struct{}, len(batch))
	for _, q := range batch {
		seen[q.ID] = struct{}{}
	}

	assert.Len(t, seen, 20, "shuffle must be a permutation")
}

func TestShuffleQuotes_Uniform(t *testing.T) {
	// With 3 elements there are 6 permutations. Over 3000 shuffles each
	// should land near 500; the bounds below are roughly six standard
	// deviations out.
	const iterations = 3000

	counts := make(map[[3]int]int)

	for i := 0; i < iterations; i++ {
		batch := []movieQuote{{ID: 0}, {ID: 1}, {ID: 2}}
		shuffleQuotes(batch)
		counts[[3]int{batch[0].ID, batch[1].ID, batch[2].ID}]++
	}

	require.Len(t, counts, 6, "all permutations must be reachable")

	for perm, n := range counts {
		assert.Greater(t, n, 370, "permutation %v", perm)
		assert.Less(t, n, 630, "permutation %v", perm)
	}
}
