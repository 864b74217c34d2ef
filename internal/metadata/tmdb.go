package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const defaultTMDBURL = "https://api.themoviedb.org/3"

// ScreenMetadata is the subset of a TMDB search hit the library stores
// care about; it serves both movies and TV shows.
type ScreenMetadata struct {
	Overview    string
	PosterPath  string
	ReleaseDate string
	Rating      float64
}

// TMDBClient searches movies and TV shows by title.
type TMDBClient struct {
	c      *httpClient
	apiKey string
}

func NewTMDBClient(baseURL, apiKey string, log zerolog.Logger) (*TMDBClient, error) {
	if baseURL == "" {
		baseURL = defaultTMDBURL
	}
	c, err := newHTTPClient("tmdb", baseURL, nil, log)
	if err != nil {
		return nil, err
	}
	return &TMDBClient{c: c, apiKey: apiKey}, nil
}

type tmdbSearchResponse struct {
	TotalResults int `json:"total_results"`
	Results      []struct {
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		VoteAverage  float64 `json:"vote_average"`
	} `json:"results"`
}

// SearchMovie returns metadata for the best movie hit, optionally
// narrowed by release year (0 means any).
func (t *TMDBClient) SearchMovie(ctx context.Context, title string, year int) (ScreenMetadata, error) {
	return t.search(ctx, "search/movie", title, year)
}

// SearchTVShow returns metadata for the best TV show hit.
func (t *TMDBClient) SearchTVShow(ctx context.Context, title string, year int) (ScreenMetadata, error) {
	return t.search(ctx, "search/tv", title, year)
}

func (t *TMDBClient) search(ctx context.Context, path, title string, year int) (ScreenMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ScreenMetadata{}, fmt.Errorf("%w: empty title", ErrNotFound)
	}

	q := url.Values{}
	q.Set("query", title)
	q.Set("api_key", t.apiKey)
	if year > 0 {
		if path == "search/tv" {
			q.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			q.Set("year", strconv.Itoa(year))
		}
	}

	var resp tmdbSearchResponse
	if err := t.c.getJSON(ctx, path, q, &resp); err != nil {
		return ScreenMetadata{}, err
	}
	if resp.TotalResults == 0 || len(resp.Results) == 0 {
		return ScreenMetadata{}, ErrNotFound
	}

	hit := resp.Results[0]
	release := hit.ReleaseDate
	if release == "" {
		release = hit.FirstAirDate
	}
	if strings.TrimSpace(hit.Overview) == "" {
		return ScreenMetadata{}, ErrNotFound
	}
	return ScreenMetadata{
		Overview:    hit.Overview,
		PosterPath:  hit.PosterPath,
		ReleaseDate: release,
		Rating:      hit.VoteAverage,
	}, nil
}
