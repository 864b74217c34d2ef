package library

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used in tests and in demo mode.
type MemoryStore struct {
	mu       sync.Mutex
	books    map[string]*Book
	podcasts map[string]*Podcast
	movies   map[string]*Movie
	tvShows  map[string]*TVShow
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:    make(map[string]*Book),
		podcasts: make(map[string]*Podcast),
		movies:   make(map[string]*Movie),
		tvShows:  make(map[string]*TVShow),
		now:      time.Now,
	}
}

// PutBook inserts or replaces a book (seeding for tests and demo mode).
func (s *MemoryStore) PutBook(b Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = &b
}

// PutPodcast inserts or replaces a podcast.
func (s *MemoryStore) PutPodcast(p Podcast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.podcasts[p.ID] = &p
}

// PutMovie inserts or replaces a movie.
func (s *MemoryStore) PutMovie(m Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[m.ID] = &m
}

// PutTVShow inserts or replaces a TV show.
func (s *MemoryStore) PutTVShow(t TVShow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tvShows[t.ID] = &t
}

func (s *MemoryStore) GetBook(_ context.Context, id string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) CountPendingBooks(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, b := range s.books {
		if bookPending(b) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListPendingBooks(_ context.Context, limit int) ([]Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Book
	for _, b := range s.books {
		if bookPending(b) {
			out = append(out, *b)
		}
	}
	sortByCreated(out, func(b Book) (time.Time, string) { return b.CreatedAt, b.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ApplyBookEnrichment(_ context.Context, id string, e BookEnrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Description = e.Description
	b.PageCount = e.PageCount
	b.Genres = e.Genres
	b.Thumbnail = e.Thumbnail
	b.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) CountPendingPodcasts(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, p := range s.podcasts {
		if p.Description == "" {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListPendingPodcasts(_ context.Context, limit int) ([]Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Podcast
	for _, p := range s.podcasts {
		if p.Description == "" {
			out = append(out, *p)
		}
	}
	sortByCreated(out, func(p Podcast) (time.Time, string) { return p.CreatedAt, p.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ApplyPodcastEnrichment(_ context.Context, id string, e PodcastEnrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.podcasts[id]
	if !ok {
		return ErrNotFound
	}
	p.Description = e.Description
	p.Publisher = e.Publisher
	p.ImageURL = e.ImageURL
	p.TotalEpisodes = e.TotalEpisodes
	p.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) CountPendingMovies(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, m := range s.movies {
		if m.Overview == "" {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListPendingMovies(_ context.Context, limit int) ([]Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Movie
	for _, m := range s.movies {
		if m.Overview == "" {
			out = append(out, *m)
		}
	}
	sortByCreated(out, func(m Movie) (time.Time, string) { return m.CreatedAt, m.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ApplyMovieEnrichment(_ context.Context, id string, e ScreenEnrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return ErrNotFound
	}
	m.Overview = e.Overview
	m.PosterPath = e.PosterPath
	m.ReleaseDate = e.ReleaseDate
	m.Rating = e.Rating
	m.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) CountPendingTVShows(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, t := range s.tvShows {
		if t.Overview == "" {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListPendingTVShows(_ context.Context, limit int) ([]TVShow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TVShow
	for _, t := range s.tvShows {
		if t.Overview == "" {
			out = append(out, *t)
		}
	}
	sortByCreated(out, func(t TVShow) (time.Time, string) { return t.CreatedAt, t.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ApplyTVShowEnrichment(_ context.Context, id string, e ScreenEnrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tvShows[id]
	if !ok {
		return ErrNotFound
	}
	t.Overview = e.Overview
	t.PosterPath = e.PosterPath
	t.ReleaseDate = e.ReleaseDate
	t.Rating = e.Rating
	t.UpdatedAt = s.now()
	return nil
}

func bookPending(b *Book) bool {
	return b.Description == "" && b.ISBN != ""
}

func sortByCreated[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi < idj
		}
		return ti.Before(tj)
	})
}
