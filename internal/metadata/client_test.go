package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleBooksLookupByISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "isbn:9780134190440", r.URL.Query().Get("q"))
		assert.Equal(t, "key-123", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"totalItems": 1,
			"items": [{"volumeInfo": {
				"description": "A tour of Go.",
				"pageCount": 400,
				"categories": ["Computers"],
				"imageLinks": {"thumbnail": "http://img/thumb.jpg"}
			}}]
		}`))
	}))
	defer srv.Close()

	client, err := NewGoogleBooksClient(srv.URL, "key-123", zerolog.Nop())
	require.NoError(t, err)

	meta, err := client.LookupByISBN(context.Background(), "978-0134190440")
	require.NoError(t, err)
	assert.Equal(t, "A tour of Go.", meta.Description)
	assert.Equal(t, 400, meta.PageCount)
	assert.Equal(t, []string{"Computers"}, meta.Categories)
	assert.Equal(t, "http://img/thumb.jpg", meta.Thumbnail)
}

func TestGoogleBooksLookupMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer srv.Close()

	client, err := NewGoogleBooksClient(srv.URL, "", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.LookupByISBN(context.Background(), "9999999999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleBooksLookupEmptyISBN(t *testing.T) {
	client, err := NewGoogleBooksClient("http://unused.invalid", "", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.LookupByISBN(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListenNotesSearchByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Go Time", r.URL.Query().Get("q"))
		assert.Equal(t, "ln-key", r.Header.Get("X-ListenAPI-Key"))
		w.Write([]byte(`{
			"count": 1,
			"results": [{
				"description_original": "A podcast about Go.",
				"publisher_original": "Changelog Media",
				"image": "http://img/cover.jpg",
				"total_episodes": 300
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewListenNotesClient(srv.URL, "ln-key", zerolog.Nop())
	require.NoError(t, err)

	meta, err := client.SearchByTitle(context.Background(), "Go Time")
	require.NoError(t, err)
	assert.Equal(t, "A podcast about Go.", meta.Description)
	assert.Equal(t, "Changelog Media", meta.Publisher)
	assert.Equal(t, 300, meta.TotalEpisodes)
}

func TestListenNotesHitWithoutDescriptionIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"count": 1,
			"results": [{"publisher_original": "Changelog Media", "total_episodes": 300}]
		}`))
	}))
	defer srv.Close()

	client, err := NewListenNotesClient(srv.URL, "ln-key", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.SearchByTitle(context.Background(), "Go Time")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTMDBSearchMovie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Heat", r.URL.Query().Get("query"))
		assert.Equal(t, "1995", r.URL.Query().Get("year"))
		w.Write([]byte(`{
			"total_results": 1,
			"results": [{
				"overview": "A heist crew and a detective.",
				"poster_path": "/heat.jpg",
				"release_date": "1995-12-15",
				"vote_average": 8.3
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewTMDBClient(srv.URL, "tmdb-key", zerolog.Nop())
	require.NoError(t, err)

	meta, err := client.SearchMovie(context.Background(), "Heat", 1995)
	require.NoError(t, err)
	assert.Equal(t, "A heist crew and a detective.", meta.Overview)
	assert.Equal(t, "1995-12-15", meta.ReleaseDate)
	assert.InDelta(t, 8.3, meta.Rating, 0.001)
}

func TestTMDBSearchTVShowUsesFirstAirDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		assert.Equal(t, "2008", r.URL.Query().Get("first_air_date_year"))
		w.Write([]byte(`{
			"total_results": 1,
			"results": [{
				"overview": "A chemistry teacher turns to crime.",
				"poster_path": "/bb.jpg",
				"first_air_date": "2008-01-20",
				"vote_average": 8.9
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewTMDBClient(srv.URL, "tmdb-key", zerolog.Nop())
	require.NoError(t, err)

	meta, err := client.SearchTVShow(context.Background(), "Breaking Bad", 2008)
	require.NoError(t, err)
	assert.Equal(t, "2008-01-20", meta.ReleaseDate)
}

func TestCatalog404MapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewTMDBClient(srv.URL, "tmdb-key", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.SearchMovie(context.Background(), "Heat", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewGoogleBooksClient(srv.URL, "", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.LookupByISBN(context.Background(), "9780134190440")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCatalogBreakerOpensAfterSustainedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewGoogleBooksClient(srv.URL, "", zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _ = client.LookupByISBN(context.Background(), "9780134190440")
	}
	_, err = client.LookupByISBN(context.Background(), "9780134190440")
	assert.ErrorIs(t, err, ErrUnavailable)
}
