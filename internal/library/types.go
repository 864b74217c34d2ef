// Package library holds the media records and the stores that answer
// "what still needs enrichment" for each kind.
package library

import (
	"errors"
	"time"
)

// ErrNotFound reports a missing library record.
var ErrNotFound = errors.New("library: not found")

// Book is a catalogued book. Description empty means the record still
// awaits enrichment; the ISBN is the lookup key for it.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ISBN        string    `json:"isbn,omitempty"`
	Description string    `json:"description,omitempty"`
	PageCount   int       `json:"pageCount,omitempty"`
	Genres      string    `json:"genres,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Podcast is a catalogued podcast, looked up by title.
type Podcast struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	TotalEpisodes int       `json:"totalEpisodes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Movie is a catalogued movie, looked up by title and release year.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	PosterPath  string    `json:"posterPath,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TVShow is a catalogued TV show; it shares the movie enrichment
// pipeline but lives in its own table.
type TVShow struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FirstAirYear int       `json:"firstAirYear,omitempty"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BookEnrichment is the payload applied to a book after a successful
// catalog lookup.
type BookEnrichment struct {
	Description string
	PageCount   int
	Genres      string
	Thumbnail   string
}

// PodcastEnrichment is the payload applied to a podcast.
type PodcastEnrichment struct {
	Description   string
	Publisher     string
	ImageURL      string
	TotalEpisodes int
}

// ScreenEnrichment is the payload applied to a movie or TV show.
type ScreenEnrichment struct {
	Overview    string
	PosterPath  string
	ReleaseDate string
	Rating      float64
}
