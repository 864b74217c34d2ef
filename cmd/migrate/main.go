// Command migrate applies the schema and runs token housekeeping
// against the configured database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mediavault.org/internal/auth"
	"mediavault.org/internal/config"
	"mediavault.org/internal/migrations"
	"mediavault.org/internal/obs"
)

func main() {
	pruneTokens := flag.Bool("prune-tokens", false, "delete expired refresh tokens after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		obs.InitLogger(obs.LogConfig{Level: "info", Format: "console"})
		fallback := obs.Logger()
		fallback.Fatal().Err(err).Msg("load configuration")
	}
	obs.InitLogger(obs.LogConfig{Level: cfg.Log.Level, Format: "console"})
	log := obs.Logger()

	if cfg.Database.DSN == "" {
		log.Fatal().Msg("database dsn is required")
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrations.Run(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}
	log.Info().Msg("migrations applied")

	if *pruneTokens {
		n, err := auth.NewPGStore(db).DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			log.Fatal().Err(err).Msg("prune expired refresh tokens")
		}
		log.Info().Int64("deleted", n).Msg("expired refresh tokens pruned")
	}
}
