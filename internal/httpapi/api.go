// Package httpapi is the HTTP surface: auth endpoints, enrichment
// operations, the SSE progress stream and the usual health plumbing.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"mediavault.org/internal/auth"
	"mediavault.org/internal/config"
	"mediavault.org/internal/enrich"
	"mediavault.org/internal/library"
	"mediavault.org/internal/obs"
	"mediavault.org/internal/stream"
)

// ReadyProbe checks downstream readiness (a DB ping, when one is
// configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	auth       *auth.Service
	runner     *enrich.Runner
	books      *library.BookSource
	podcasts   *library.PodcastSource
	screen     *library.ScreenSource
	events     *stream.Stream
	validate   *validator.Validate
	readyProbe ReadyProbe
	log        zerolog.Logger
	version    string

	cookieSecure bool
	cookieDomain string
	refreshTTL   time.Duration

	enrichDefaults config.EnrichmentConfig
}

// Options carries the API's collaborators.
type Options struct {
	Auth           *auth.Service
	Runner         *enrich.Runner
	Books          *library.BookSource
	Podcasts       *library.PodcastSource
	Screen         *library.ScreenSource
	Events         *stream.Stream
	ReadyProbe     ReadyProbe
	Logger         zerolog.Logger
	Version        string
	CookieSecure   bool
	CookieDomain   string
	EnrichDefaults config.EnrichmentConfig

	// Zero values fall back to sane per-IP limits.
	RateBurst     int
	RatePerSecond int
}

// New wires all routes. The enrichment and logout endpoints sit behind
// bearer authentication; login, refresh and the health plumbing do not.
func New(opts Options) *API {
	a := &API{
		router:         chi.NewRouter(),
		auth:           opts.Auth,
		runner:         opts.Runner,
		books:          opts.Books,
		podcasts:       opts.Podcasts,
		screen:         opts.Screen,
		events:         opts.Events,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		readyProbe:     opts.ReadyProbe,
		log:            opts.Logger,
		version:        opts.Version,
		cookieSecure:   opts.CookieSecure,
		cookieDomain:   opts.CookieDomain,
		refreshTTL:     opts.Auth.RefreshTTL(),
		enrichDefaults: opts.EnrichDefaults,
	}

	burst, perSecond := opts.RateBurst, opts.RatePerSecond
	if burst <= 0 {
		burst = 20
	}
	if perSecond <= 0 {
		perSecond = 10
	}

	r := a.router
	r.Use(RequestID)
	r.Use(Logging(a.log))
	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(RateLimit(burst, perSecond))
	r.Use(MaxBodyBytes(1 << 20))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Group(func(r chi.Router) {
			r.Use(a.RequireAuth)
			r.Get("/validate", a.handleValidate)
			r.Post("/logout", a.handleLogout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(a.RequireAuth)

		r.Route("/v1/books/enrichment", func(r chi.Router) {
			r.Get("/status", a.handleBooksStatus)
			r.Post("/run", a.handleEnrichRun(a.books))
			r.Post("/run-all", a.handleEnrichRunAll(a.books))
			r.Post("/{id}", a.handleEnrichSingleBook)
		})
		r.Route("/v1/podcasts/enrichment", func(r chi.Router) {
			r.Get("/status", a.handlePodcastsStatus)
			r.Post("/run", a.handleEnrichRun(a.podcasts))
			r.Post("/run-all", a.handleEnrichRunAll(a.podcasts))
		})
		r.Route("/v1/movies/enrichment", func(r chi.Router) {
			r.Get("/status", a.handleMoviesStatus)
			r.Post("/run", a.handleEnrichRun(a.screen))
			r.Post("/run-all", a.handleEnrichRunAll(a.screen))
		})

		r.Get("/v1/enrichment/events", a.StreamEvents)
	})

	return a
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mediavault-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "mediavault-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
