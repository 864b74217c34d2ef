package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const defaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// BookMetadata is the subset of a Google Books volume the library
// stores care about.
type BookMetadata struct {
	Description string
	PageCount   int
	Categories  []string
	Thumbnail   string
}

// GoogleBooksClient looks up book volumes by ISBN.
type GoogleBooksClient struct {
	c      *httpClient
	apiKey string
}

func NewGoogleBooksClient(baseURL, apiKey string, log zerolog.Logger) (*GoogleBooksClient, error) {
	if baseURL == "" {
		baseURL = defaultGoogleBooksURL
	}
	c, err := newHTTPClient("googlebooks", baseURL, nil, log)
	if err != nil {
		return nil, err
	}
	return &GoogleBooksClient{c: c, apiKey: apiKey}, nil
}

type googleVolumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Description string   `json:"description"`
			PageCount   int      `json:"pageCount"`
			Categories  []string `json:"categories"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// LookupByISBN returns metadata for the first volume matching the
// ISBN. ErrNotFound when the catalog has no such volume or the match
// carries no description worth storing.
func (g *GoogleBooksClient) LookupByISBN(ctx context.Context, isbn string) (BookMetadata, error) {
	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return BookMetadata{}, fmt.Errorf("%w: empty isbn", ErrNotFound)
	}

	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	q.Set("maxResults", "1")
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}

	var resp googleVolumesResponse
	if err := g.c.getJSON(ctx, "volumes", q, &resp); err != nil {
		return BookMetadata{}, err
	}
	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return BookMetadata{}, ErrNotFound
	}

	info := resp.Items[0].VolumeInfo
	if strings.TrimSpace(info.Description) == "" {
		return BookMetadata{}, ErrNotFound
	}
	return BookMetadata{
		Description: info.Description,
		PageCount:   info.PageCount,
		Categories:  info.Categories,
		Thumbnail:   info.ImageLinks.Thumbnail,
	}, nil
}
