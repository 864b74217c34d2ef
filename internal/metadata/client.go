// Package metadata holds the thin HTTP clients for the external
// catalogs (Google Books, Listen Notes, TMDB). Each client carries its
// own circuit breaker so a sustained outage on one catalog fails fast
// instead of burning the enrichment loop's pacing budget on timeouts.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrNotFound reports that the catalog has no entry for the query.
var ErrNotFound = errors.New("metadata: not found")

// ErrUnavailable reports that the catalog is unreachable or its
// circuit breaker is open.
var ErrUnavailable = errors.New("metadata: catalog unavailable")

const defaultTimeout = 15 * time.Second

// httpClient is the shared request/decode/breaker plumbing underneath
// the per-catalog clients.
type httpClient struct {
	base    *url.URL
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	headers map[string]string
	log     zerolog.Logger
}

func newHTTPClient(name, baseURL string, headers map[string]string, log zerolog.Logger) (*httpClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	log = log.With().Str("catalog", name).Logger()

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("catalog circuit breaker state changed")
		},
		// A catalog miss is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &httpClient{
		base:    base,
		http:    &http.Client{Timeout: defaultTimeout},
		cb:      cb,
		headers: headers,
		log:     log,
	}, nil
}

// getJSON performs a GET against path+query and decodes the body into
// out. A 404 maps to ErrNotFound and does not trip the breaker.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("catalog returned %s", resp.Status)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
