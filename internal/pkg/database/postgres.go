package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NewPostgres opens a connection pool sized for the ledger's row-lock
// heavy workload: settlements hold locks briefly but concurrently.
func NewPostgres(databaseURL string) (*sqlx.DB, error) {
	pool, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(50)
	pool.SetMaxIdleConns(25)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("Connected to PostgreSQL")
	return pool, nil
}

// ClosePostgres closes the pool; safe to call with nil.
func ClosePostgres(pool *sqlx.DB) {
	if pool == nil {
		return
	}
	if err := pool.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing PostgreSQL connection")
	}
}
