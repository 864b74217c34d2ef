package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mediavault.org/internal/auth"
	"mediavault.org/internal/config"
	"mediavault.org/internal/enrich"
	"mediavault.org/internal/httpapi"
	"mediavault.org/internal/library"
	"mediavault.org/internal/metadata"
	"mediavault.org/internal/migrations"
	"mediavault.org/internal/obs"
	"mediavault.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.InitLogger(obs.LogConfig{Level: "info", Format: "json"})
		fallback := obs.Logger()
		fallback.Fatal().Err(err).Msg("load configuration")
	}

	obs.InitLogger(obs.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	// Database is optional; without a DSN the service runs fully
	// in-memory (demo mode, nothing survives a restart).
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := migrations.Run(ctx, db); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("run migrations")
		}
		cancel()
	} else {
		log.Warn().Msg("no database configured, running with in-memory stores")
	}

	var tokenStore auth.RefreshTokenStore
	var libStore library.Store
	if db != nil {
		tokenStore = auth.NewPGStore(db)
		libStore = library.NewPGStore(db)
	} else {
		tokenStore = auth.NewMemoryStore()
		libStore = library.NewMemoryStore()
	}

	authSvc, err := auth.NewService(tokenStore,
		auth.StaticCredentials{
			Username:       cfg.Auth.Username,
			Password:       cfg.Auth.Password,
			PasswordBcrypt: cfg.Auth.PasswordBcrypt,
		},
		cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("configure auth service")
	}

	books, err := metadata.NewGoogleBooksClient(cfg.Metadata.GoogleBooks.BaseURL, cfg.Metadata.GoogleBooks.APIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configure google books client")
	}
	podcasts, err := metadata.NewListenNotesClient(cfg.Metadata.ListenNotes.BaseURL, cfg.Metadata.ListenNotes.APIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configure listen notes client")
	}
	screen, err := metadata.NewTMDBClient(cfg.Metadata.TMDB.BaseURL, cfg.Metadata.TMDB.APIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configure tmdb client")
	}

	events := stream.New()
	runner := enrich.NewRunner(
		enrich.WithLogger(log),
		enrich.WithNotifier(events.Publish),
	)

	api := httpapi.New(httpapi.Options{
		Auth:           authSvc,
		Runner:         runner,
		Books:          library.NewBookSource(libStore, books),
		Podcasts:       library.NewPodcastSource(libStore, podcasts),
		Screen:         library.NewScreenSource(libStore, screen),
		Events:         events,
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Logger:         log,
		Version:        version,
		CookieSecure:   cfg.ResolveCookieSecure(),
		CookieDomain:   cfg.Auth.CookieDomain,
		EnrichDefaults: cfg.Enrichment,
		RateBurst:      cfg.Server.RateBurst,
		RatePerSecond:  cfg.Server.RatePerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting mediavault-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Info().Msg("stopped")
}
