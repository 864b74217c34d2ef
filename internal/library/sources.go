package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediavault.org/internal/enrich"
	"mediavault.org/internal/metadata"
)

// Catalog lookups the sources depend on. The metadata clients satisfy
// these; tests plug in fakes.
type (
	BookCatalog interface {
		LookupByISBN(ctx context.Context, isbn string) (metadata.BookMetadata, error)
	}
	PodcastCatalog interface {
		SearchByTitle(ctx context.Context, title string) (metadata.PodcastMetadata, error)
	}
	ScreenCatalog interface {
		SearchMovie(ctx context.Context, title string, year int) (metadata.ScreenMetadata, error)
		SearchTVShow(ctx context.Context, title string, year int) (metadata.ScreenMetadata, error)
	}
)

// Enrichment kind names used in routes, metrics and events.
const (
	KindBooks    = "books"
	KindPodcasts = "podcasts"
	KindMovies   = "movies"
)

// BookSource feeds the enrichment runner with books that have an ISBN
// but no description yet.
type BookSource struct {
	store   Store
	catalog BookCatalog
}

var _ enrich.Source = (*BookSource)(nil)

func NewBookSource(store Store, catalog BookCatalog) *BookSource {
	return &BookSource{store: store, catalog: catalog}
}

func (s *BookSource) Kind() string { return KindBooks }

func (s *BookSource) Limits() enrich.Limits { return enrich.DefaultLimits() }

func (s *BookSource) CountPending(ctx context.Context) (int, error) {
	return s.store.CountPendingBooks(ctx)
}

func (s *BookSource) PendingBatch(ctx context.Context, limit int) ([]enrich.Item, error) {
	books, err := s.store.ListPendingBooks(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]enrich.Item, 0, len(books))
	for _, b := range books {
		items = append(items, enrich.Item{ID: b.ID, Label: b.Title})
	}
	return items, nil
}

func (s *BookSource) Enrich(ctx context.Context, item enrich.Item) error {
	book, err := s.store.GetBook(ctx, item.ID)
	if err != nil {
		return err
	}
	meta, err := s.catalog.LookupByISBN(ctx, book.ISBN)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return fmt.Errorf("isbn %s: %w", book.ISBN, enrich.ErrNoMatch)
		}
		return err
	}
	return s.store.ApplyBookEnrichment(ctx, book.ID, BookEnrichment{
		Description: meta.Description,
		PageCount:   meta.PageCount,
		Genres:      strings.Join(meta.Categories, ", "),
		Thumbnail:   meta.Thumbnail,
	})
}

// Single-book enrichment outcomes.
const (
	BookEnriched        = "enriched"
	BookAlreadyEnriched = "already_enriched"
	BookMissingISBN     = "missing_isbn"
	BookNoMatch         = "no_match"
)

// EnrichOne enriches a single book by id, outside the batch loop.
// ErrNotFound means no such book; otherwise the returned status tells
// the caller what happened, with the (possibly updated) record.
func (s *BookSource) EnrichOne(ctx context.Context, id string) (string, *Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if book.Description != "" {
		return BookAlreadyEnriched, book, nil
	}
	if strings.TrimSpace(book.ISBN) == "" {
		return BookMissingISBN, book, nil
	}

	meta, err := s.catalog.LookupByISBN(ctx, book.ISBN)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return BookNoMatch, book, nil
		}
		return "", nil, err
	}
	if err := s.store.ApplyBookEnrichment(ctx, book.ID, BookEnrichment{
		Description: meta.Description,
		PageCount:   meta.PageCount,
		Genres:      strings.Join(meta.Categories, ", "),
		Thumbnail:   meta.Thumbnail,
	}); err != nil {
		return "", nil, err
	}
	updated, err := s.store.GetBook(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return BookEnriched, updated, nil
}

// PodcastSource feeds the runner with podcasts lacking a description.
type PodcastSource struct {
	store   Store
	catalog PodcastCatalog
}

var _ enrich.Source = (*PodcastSource)(nil)

func NewPodcastSource(store Store, catalog PodcastCatalog) *PodcastSource {
	return &PodcastSource{store: store, catalog: catalog}
}

func (s *PodcastSource) Kind() string { return KindPodcasts }

// Listen Notes enforces far stricter rate limits than the other
// catalogs: smaller batches, slower calls, lower run-all ceiling.
func (s *PodcastSource) Limits() enrich.Limits {
	return enrich.Limits{
		MaxBatchOnce:   100,
		MaxBatchRunAll: 50,
		MinDelay:       500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		MaxItems:       500,
	}
}

func (s *PodcastSource) CountPending(ctx context.Context) (int, error) {
	return s.store.CountPendingPodcasts(ctx)
}

func (s *PodcastSource) PendingBatch(ctx context.Context, limit int) ([]enrich.Item, error) {
	podcasts, err := s.store.ListPendingPodcasts(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]enrich.Item, 0, len(podcasts))
	for _, p := range podcasts {
		items = append(items, enrich.Item{ID: p.ID, Label: p.Title})
	}
	return items, nil
}

func (s *PodcastSource) Enrich(ctx context.Context, item enrich.Item) error {
	meta, err := s.catalog.SearchByTitle(ctx, item.Label)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return fmt.Errorf("title %q: %w", item.Label, enrich.ErrNoMatch)
		}
		return err
	}
	// A hit without a description cannot clear the pending predicate;
	// counting it enriched would re-process it on every run.
	if strings.TrimSpace(meta.Description) == "" {
		return fmt.Errorf("title %q: hit without description: %w", item.Label, enrich.ErrNoMatch)
	}
	return s.store.ApplyPodcastEnrichment(ctx, item.ID, PodcastEnrichment{
		Description:   meta.Description,
		Publisher:     meta.Publisher,
		ImageURL:      meta.Image,
		TotalEpisodes: meta.TotalEpisodes,
	})
}

// ScreenSource feeds the runner with movies and TV shows lacking an
// overview. Both tables share one enrichment kind; item ids carry a
// table prefix so Enrich knows which search to run.
type ScreenSource struct {
	store   Store
	catalog ScreenCatalog
}

var _ enrich.Source = (*ScreenSource)(nil)

func NewScreenSource(store Store, catalog ScreenCatalog) *ScreenSource {
	return &ScreenSource{store: store, catalog: catalog}
}

const (
	moviePrefix = "movie:"
	tvPrefix    = "tv:"
)

func (s *ScreenSource) Kind() string { return KindMovies }

func (s *ScreenSource) Limits() enrich.Limits { return enrich.DefaultLimits() }

func (s *ScreenSource) CountPending(ctx context.Context) (int, error) {
	movies, tv, err := s.PendingCounts(ctx)
	return movies + tv, err
}

// PendingCounts reports the movie and TV show backlogs separately; the
// status endpoint surfaces both.
func (s *ScreenSource) PendingCounts(ctx context.Context) (movies, tvShows int, err error) {
	movies, err = s.store.CountPendingMovies(ctx)
	if err != nil {
		return 0, 0, err
	}
	tvShows, err = s.store.CountPendingTVShows(ctx)
	if err != nil {
		return 0, 0, err
	}
	return movies, tvShows, nil
}

func (s *ScreenSource) PendingBatch(ctx context.Context, limit int) ([]enrich.Item, error) {
	movies, err := s.store.ListPendingMovies(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]enrich.Item, 0, limit)
	for _, m := range movies {
		items = append(items, enrich.Item{ID: moviePrefix + m.ID, Label: m.Title})
	}
	if remaining := limit - len(items); remaining > 0 {
		shows, err := s.store.ListPendingTVShows(ctx, remaining)
		if err != nil {
			return nil, err
		}
		for _, t := range shows {
			items = append(items, enrich.Item{ID: tvPrefix + t.ID, Label: t.Title})
		}
	}
	return items, nil
}

func (s *ScreenSource) Enrich(ctx context.Context, item enrich.Item) error {
	switch {
	case strings.HasPrefix(item.ID, moviePrefix):
		return s.enrichMovie(ctx, strings.TrimPrefix(item.ID, moviePrefix), item.Label)
	case strings.HasPrefix(item.ID, tvPrefix):
		return s.enrichTVShow(ctx, strings.TrimPrefix(item.ID, tvPrefix), item.Label)
	default:
		return fmt.Errorf("unrecognized screen item id %q", item.ID)
	}
}

func (s *ScreenSource) enrichMovie(ctx context.Context, id, title string) error {
	meta, err := s.catalog.SearchMovie(ctx, title, 0)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return fmt.Errorf("title %q: %w", title, enrich.ErrNoMatch)
		}
		return err
	}
	return s.store.ApplyMovieEnrichment(ctx, id, ScreenEnrichment{
		Overview:    meta.Overview,
		PosterPath:  meta.PosterPath,
		ReleaseDate: meta.ReleaseDate,
		Rating:      meta.Rating,
	})
}

func (s *ScreenSource) enrichTVShow(ctx context.Context, id, title string) error {
	meta, err := s.catalog.SearchTVShow(ctx, title, 0)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return fmt.Errorf("title %q: %w", title, enrich.ErrNoMatch)
		}
		return err
	}
	return s.store.ApplyTVShowEnrichment(ctx, id, ScreenEnrichment{
		Overview:    meta.Overview,
		PosterPath:  meta.PosterPath,
		ReleaseDate: meta.ReleaseDate,
		Rating:      meta.Rating,
	})
}
