package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/skillswap-api/internal/config"
	"github.com/skillswap/skillswap-api/internal/db"
	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/pkg/database"
	"github.com/skillswap/skillswap-api/internal/pkg/logger"
)

// One-shot expiration sweep for cron or manual invocation. The API server
// runs the same sweep on a timer; this binary exists for deployments that
// prefer external scheduling.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)

	pg, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(pg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.RunMigrations(ctx, pg); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	sweeper := ledger.NewSweeper(ledger.NewService(pg, nil), 0)
	result, err := sweeper.SweepOnce(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sweep failed")
	}

	log.Info().
		Int("cancelled", result.CancelledCount).
		Msg("Sweep finished")
}
