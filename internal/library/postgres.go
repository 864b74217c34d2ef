package library

import (
	"context"
	"database/sql"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetBook(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, author, isbn, description, page_count, genres, thumbnail, created_at, updated_at
		 from books where id=$1`, id)

	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description,
		&b.PageCount, &b.Genres, &b.Thumbnail, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) CountPendingBooks(ctx context.Context) (int, error) {
	return s.count(ctx,
		`select count(*) from books where description = '' and isbn <> ''`)
}

func (s *PGStore) ListPendingBooks(ctx context.Context, limit int) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, author, isbn, description, page_count, genres, thumbnail, created_at, updated_at
		 from books where description = '' and isbn <> ''
		 order by created_at limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description,
			&b.PageCount, &b.Genres, &b.Thumbnail, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PGStore) ApplyBookEnrichment(ctx context.Context, id string, e BookEnrichment) error {
	return s.apply(ctx,
		`update books
		 set description=$2, page_count=$3, genres=$4, thumbnail=$5, updated_at=now()
		 where id=$1`,
		id, e.Description, e.PageCount, e.Genres, e.Thumbnail)
}

func (s *PGStore) CountPendingPodcasts(ctx context.Context) (int, error) {
	return s.count(ctx, `select count(*) from podcasts where description = ''`)
}

func (s *PGStore) ListPendingPodcasts(ctx context.Context, limit int) ([]Podcast, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, description, publisher, image_url, total_episodes, created_at, updated_at
		 from podcasts where description = ''
		 order by created_at limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Podcast
	for rows.Next() {
		var p Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Publisher,
			&p.ImageURL, &p.TotalEpisodes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) ApplyPodcastEnrichment(ctx context.Context, id string, e PodcastEnrichment) error {
	return s.apply(ctx,
		`update podcasts
		 set description=$2, publisher=$3, image_url=$4, total_episodes=$5, updated_at=now()
		 where id=$1`,
		id, e.Description, e.Publisher, e.ImageURL, e.TotalEpisodes)
}

func (s *PGStore) CountPendingMovies(ctx context.Context) (int, error) {
	return s.count(ctx, `select count(*) from movies where overview = ''`)
}

func (s *PGStore) ListPendingMovies(ctx context.Context, limit int) ([]Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, year, overview, poster_path, release_date, rating, created_at, updated_at
		 from movies where overview = ''
		 order by created_at limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Year, &m.Overview, &m.PosterPath,
			&m.ReleaseDate, &m.Rating, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) ApplyMovieEnrichment(ctx context.Context, id string, e ScreenEnrichment) error {
	return s.apply(ctx,
		`update movies
		 set overview=$2, poster_path=$3, release_date=$4, rating=$5, updated_at=now()
		 where id=$1`,
		id, e.Overview, e.PosterPath, e.ReleaseDate, e.Rating)
}

func (s *PGStore) CountPendingTVShows(ctx context.Context) (int, error) {
	return s.count(ctx, `select count(*) from tv_shows where overview = ''`)
}

func (s *PGStore) ListPendingTVShows(ctx context.Context, limit int) ([]TVShow, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, first_air_year, overview, poster_path, release_date, rating, created_at, updated_at
		 from tv_shows where overview = ''
		 order by created_at limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TVShow
	for rows.Next() {
		var t TVShow
		if err := rows.Scan(&t.ID, &t.Title, &t.FirstAirYear, &t.Overview, &t.PosterPath,
			&t.ReleaseDate, &t.Rating, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) ApplyTVShowEnrichment(ctx context.Context, id string, e ScreenEnrichment) error {
	return s.apply(ctx,
		`update tv_shows
		 set overview=$2, poster_path=$3, release_date=$4, rating=$5, updated_at=now()
		 where id=$1`,
		id, e.Overview, e.PosterPath, e.ReleaseDate, e.Rating)
}

func (s *PGStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PGStore) apply(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
