package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault.org/internal/enrich"
	"mediavault.org/internal/metadata"
)

type fakeBookCatalog struct {
	byISBN map[string]metadata.BookMetadata
	err    error
}

func (f *fakeBookCatalog) LookupByISBN(_ context.Context, isbn string) (metadata.BookMetadata, error) {
	if f.err != nil {
		return metadata.BookMetadata{}, f.err
	}
	meta, ok := f.byISBN[isbn]
	if !ok {
		return metadata.BookMetadata{}, metadata.ErrNotFound
	}
	return meta, nil
}

type fakePodcastCatalog struct {
	byTitle map[string]metadata.PodcastMetadata
}

func (f *fakePodcastCatalog) SearchByTitle(_ context.Context, title string) (metadata.PodcastMetadata, error) {
	meta, ok := f.byTitle[title]
	if !ok {
		return metadata.PodcastMetadata{}, metadata.ErrNotFound
	}
	return meta, nil
}

type fakeScreenCatalog struct {
	movies map[string]metadata.ScreenMetadata
	tv     map[string]metadata.ScreenMetadata
}

func (f *fakeScreenCatalog) SearchMovie(_ context.Context, title string, _ int) (metadata.ScreenMetadata, error) {
	meta, ok := f.movies[title]
	if !ok {
		return metadata.ScreenMetadata{}, metadata.ErrNotFound
	}
	return meta, nil
}

func (f *fakeScreenCatalog) SearchTVShow(_ context.Context, title string, _ int) (metadata.ScreenMetadata, error) {
	meta, ok := f.tv[title]
	if !ok {
		return metadata.ScreenMetadata{}, metadata.ErrNotFound
	}
	return meta, nil
}

func seededBookStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutBook(Book{ID: "b1", Title: "The Go Programming Language", ISBN: "9780134190440", CreatedAt: base})
	store.PutBook(Book{ID: "b2", Title: "No ISBN Here", CreatedAt: base.Add(time.Hour)})
	store.PutBook(Book{ID: "b3", Title: "Already Done", ISBN: "111", Description: "have one", CreatedAt: base.Add(2 * time.Hour)})
	store.PutBook(Book{ID: "b4", Title: "Unknown to Catalog", ISBN: "000", CreatedAt: base.Add(3 * time.Hour)})
	return store
}

func TestBookSourcePendingExcludesEnrichedAndISBNless(t *testing.T) {
	store := seededBookStore(t)
	src := NewBookSource(store, &fakeBookCatalog{})

	n, err := src.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := src.PendingBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b1", items[0].ID)
	assert.Equal(t, "b4", items[1].ID)
}

func TestBookSourceEnrich(t *testing.T) {
	store := seededBookStore(t)
	catalog := &fakeBookCatalog{byISBN: map[string]metadata.BookMetadata{
		"9780134190440": {
			Description: "The authoritative resource.",
			PageCount:   380,
			Categories:  []string{"Computers", "Programming"},
			Thumbnail:   "http://img/gopl.jpg",
		},
	}}
	src := NewBookSource(store, catalog)
	ctx := context.Background()

	require.NoError(t, src.Enrich(ctx, enrich.Item{ID: "b1", Label: "The Go Programming Language"}))

	book, err := store.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "The authoritative resource.", book.Description)
	assert.Equal(t, 380, book.PageCount)
	assert.Equal(t, "Computers, Programming", book.Genres)

	// Enriched records drop out of the pending set.
	n, err := src.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBookSourceEnrichNoMatch(t *testing.T) {
	store := seededBookStore(t)
	src := NewBookSource(store, &fakeBookCatalog{})

	err := src.Enrich(context.Background(), enrich.Item{ID: "b4", Label: "Unknown to Catalog"})
	assert.ErrorIs(t, err, enrich.ErrNoMatch)
}

func TestBookSourceEnrichCatalogFailure(t *testing.T) {
	store := seededBookStore(t)
	src := NewBookSource(store, &fakeBookCatalog{err: errors.New("upstream down")})

	err := src.Enrich(context.Background(), enrich.Item{ID: "b1", Label: "The Go Programming Language"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, enrich.ErrNoMatch)
}

func TestBookSourceEnrichOne(t *testing.T) {
	store := seededBookStore(t)
	catalog := &fakeBookCatalog{byISBN: map[string]metadata.BookMetadata{
		"9780134190440": {Description: "The authoritative resource."},
	}}
	src := NewBookSource(store, catalog)
	ctx := context.Background()

	t.Run("enriched", func(t *testing.T) {
		status, book, err := src.EnrichOne(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, BookEnriched, status)
		assert.Equal(t, "The authoritative resource.", book.Description)
	})

	t.Run("already enriched", func(t *testing.T) {
		status, _, err := src.EnrichOne(ctx, "b3")
		require.NoError(t, err)
		assert.Equal(t, BookAlreadyEnriched, status)
	})

	t.Run("missing isbn", func(t *testing.T) {
		status, _, err := src.EnrichOne(ctx, "b2")
		require.NoError(t, err)
		assert.Equal(t, BookMissingISBN, status)
	})

	t.Run("no catalog match", func(t *testing.T) {
		status, _, err := src.EnrichOne(ctx, "b4")
		require.NoError(t, err)
		assert.Equal(t, BookNoMatch, status)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := src.EnrichOne(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPodcastSourceEnrich(t *testing.T) {
	store := NewMemoryStore()
	store.PutPodcast(Podcast{ID: "p1", Title: "Go Time"})
	catalog := &fakePodcastCatalog{byTitle: map[string]metadata.PodcastMetadata{
		"Go Time": {Description: "A podcast about Go.", Publisher: "Changelog", TotalEpisodes: 300},
	}}
	src := NewPodcastSource(store, catalog)
	ctx := context.Background()

	items, err := src.PendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, src.Enrich(ctx, items[0]))

	n, err := src.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPodcastSourceEmptyDescriptionHitIsNoMatch(t *testing.T) {
	store := NewMemoryStore()
	store.PutPodcast(Podcast{ID: "p1", Title: "Go Time"})
	catalog := &fakePodcastCatalog{byTitle: map[string]metadata.PodcastMetadata{
		"Go Time": {Publisher: "Changelog", TotalEpisodes: 300},
	}}
	src := NewPodcastSource(store, catalog)
	ctx := context.Background()

	// A hit with no description cannot count as enriched: the record
	// would stay pending and be re-processed on every run.
	err := src.Enrich(ctx, enrich.Item{ID: "p1", Label: "Go Time"})
	assert.ErrorIs(t, err, enrich.ErrNoMatch)

	n, err := src.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPodcastSourceLimitsAreStricter(t *testing.T) {
	books := NewBookSource(NewMemoryStore(), &fakeBookCatalog{}).Limits()
	podcasts := NewPodcastSource(NewMemoryStore(), &fakePodcastCatalog{}).Limits()

	assert.Less(t, podcasts.MaxBatchOnce, books.MaxBatchOnce)
	assert.Less(t, podcasts.MaxBatchRunAll, books.MaxBatchRunAll)
	assert.Greater(t, podcasts.MinDelay, books.MinDelay)
	assert.Less(t, podcasts.MaxItems, books.MaxItems)
}

func TestScreenSourceCombinesMoviesAndTVShows(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutMovie(Movie{ID: "m1", Title: "Heat", CreatedAt: base})
	store.PutMovie(Movie{ID: "m2", Title: "Enriched Already", Overview: "done", CreatedAt: base})
	store.PutTVShow(TVShow{ID: "t1", Title: "Breaking Bad", CreatedAt: base})

	catalog := &fakeScreenCatalog{
		movies: map[string]metadata.ScreenMetadata{
			"Heat": {Overview: "A heist crew and a detective.", ReleaseDate: "1995-12-15", Rating: 8.3},
		},
		tv: map[string]metadata.ScreenMetadata{
			"Breaking Bad": {Overview: "A chemistry teacher turns to crime.", ReleaseDate: "2008-01-20", Rating: 8.9},
		},
	}
	src := NewScreenSource(store, catalog)
	ctx := context.Background()

	movies, tvShows, err := src.PendingCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, movies)
	assert.Equal(t, 1, tvShows)

	total, err := src.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, err := src.PendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "movie:m1", items[0].ID)
	assert.Equal(t, "tv:t1", items[1].ID)

	for _, item := range items {
		require.NoError(t, src.Enrich(ctx, item))
	}

	total, err = src.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestScreenSourceBatchLimitSpansTables(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutMovie(Movie{ID: "m1", Title: "A", CreatedAt: base})
	store.PutMovie(Movie{ID: "m2", Title: "B", CreatedAt: base.Add(time.Minute)})
	store.PutTVShow(TVShow{ID: "t1", Title: "C", CreatedAt: base})

	src := NewScreenSource(store, &fakeScreenCatalog{})

	items, err := src.PendingBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "movie:m1", items[0].ID)
	assert.Equal(t, "movie:m2", items[1].ID)
}

func TestScreenSourceRejectsUnprefixedID(t *testing.T) {
	src := NewScreenSource(NewMemoryStore(), &fakeScreenCatalog{})
	err := src.Enrich(context.Background(), enrich.Item{ID: "m1", Label: "Heat"})
	require.Error(t, err)
}
