package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Exchange statuses.
const (
	StatusOpen      = "open"
	StatusComplete  = "complete"
	StatusErrored   = "errored"
	StatusCancelled = "cancelled"
)

// ExchangeRecord is one chat call from the UI through the backend.
type ExchangeRecord struct {
	ID        uuid.UUID
	Timestamp time.Time
	SessionID string
}

func InsertExchangeJob(r *ExchangeRecord) WriteJob {
	return WriteJobFunc(func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, `
			INSERT INTO exchanges (id, ts, session_id, status)
			VALUES ($1, $2, $3, $4)`,
			r.ID, r.Timestamp, nilIfEmpty(r.SessionID), StatusOpen,
		)
		return err
	})
}

func FinishExchangeJob(id uuid.UUID, status, errorMessage string, durationMs, chunkCount int) WriteJob {
	return WriteJobFunc(func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, `
			UPDATE exchanges SET
				status = $1,
				error_message = $2,
				duration_ms = $3,
				chunk_count = $4
			WHERE id = $5`,
			status, nilIfEmpty(errorMessage), durationMs, chunkCount, id,
		)
		return err
	})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
