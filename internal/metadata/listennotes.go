package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const defaultListenNotesURL = "https://listen-api.listennotes.com/api/v2"

// PodcastMetadata is the subset of a Listen Notes search hit the
// library stores care about.
type PodcastMetadata struct {
	Description   string
	Publisher     string
	Image         string
	TotalEpisodes int
}

// ListenNotesClient searches podcasts by title.
type ListenNotesClient struct {
	c *httpClient
}

func NewListenNotesClient(baseURL, apiKey string, log zerolog.Logger) (*ListenNotesClient, error) {
	if baseURL == "" {
		baseURL = defaultListenNotesURL
	}
	headers := map[string]string{"X-ListenAPI-Key": apiKey}
	c, err := newHTTPClient("listennotes", baseURL, headers, log)
	if err != nil {
		return nil, err
	}
	return &ListenNotesClient{c: c}, nil
}

type listenNotesSearchResponse struct {
	Count   int `json:"count"`
	Results []struct {
		DescriptionOriginal string `json:"description_original"`
		PublisherOriginal   string `json:"publisher_original"`
		Image               string `json:"image"`
		TotalEpisodes       int    `json:"total_episodes"`
	} `json:"results"`
}

// SearchByTitle returns metadata for the best search hit. ErrNotFound
// when nothing matches or the hit has no description; applying an
// empty description would leave the podcast pending forever.
func (l *ListenNotesClient) SearchByTitle(ctx context.Context, title string) (PodcastMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return PodcastMetadata{}, fmt.Errorf("%w: empty title", ErrNotFound)
	}

	q := url.Values{}
	q.Set("q", title)
	q.Set("type", "podcast")
	q.Set("only_in", "title")

	var resp listenNotesSearchResponse
	if err := l.c.getJSON(ctx, "search", q, &resp); err != nil {
		return PodcastMetadata{}, err
	}
	if resp.Count == 0 || len(resp.Results) == 0 {
		return PodcastMetadata{}, ErrNotFound
	}

	hit := resp.Results[0]
	if strings.TrimSpace(hit.DescriptionOriginal) == "" {
		return PodcastMetadata{}, ErrNotFound
	}
	return PodcastMetadata{
		Description:   hit.DescriptionOriginal,
		Publisher:     hit.PublisherOriginal,
		Image:         hit.Image,
		TotalEpisodes: hit.TotalEpisodes,
	}, nil
}
