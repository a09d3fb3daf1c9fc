// Package storage persists chat transcripts and backend lifecycle events
// to Postgres through a batching writer.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namikmesic/naga-shell/internal/storage/migrations"
	"github.com/rs/zerolog/log"
)

// migrationFiles lists embedded migrations in apply order.
var migrationFiles = []string{
	"001_initial.up.sql",
}

// NewPool opens and verifies a connection pool. The shell is a desktop
// process, so the pool is kept small and idle connections are reclaimed.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the embedded schema migrations in order. Each
// file is idempotent, so reruns on startup are safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range migrationFiles {
		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("storage: read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("storage: apply migration %s: %w", name, err)
		}
	}
	log.Info().Int("migrations", len(migrationFiles)).Msg("database schema ready")
	return nil
}
