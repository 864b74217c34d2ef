package library

import "context"

// Store is the persistence surface the enrichment sources and the
// single-item endpoint need. "Pending" means the record lacks its
// enriched attribute; for books the batch queries additionally require
// an ISBN, since a book without one can never be looked up.
type Store interface {
	GetBook(ctx context.Context, id string) (*Book, error)
	CountPendingBooks(ctx context.Context) (int, error)
	ListPendingBooks(ctx context.Context, limit int) ([]Book, error)
	ApplyBookEnrichment(ctx context.Context, id string, e BookEnrichment) error

	CountPendingPodcasts(ctx context.Context) (int, error)
	ListPendingPodcasts(ctx context.Context, limit int) ([]Podcast, error)
	ApplyPodcastEnrichment(ctx context.Context, id string, e PodcastEnrichment) error

	CountPendingMovies(ctx context.Context) (int, error)
	ListPendingMovies(ctx context.Context, limit int) ([]Movie, error)
	ApplyMovieEnrichment(ctx context.Context, id string, e ScreenEnrichment) error

	CountPendingTVShows(ctx context.Context) (int, error)
	ListPendingTVShows(ctx context.Context, limit int) ([]TVShow, error)
	ApplyTVShowEnrichment(ctx context.Context, id string, e ScreenEnrichment) error
}
