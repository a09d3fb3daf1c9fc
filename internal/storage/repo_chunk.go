package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRow is one decoded envelope as it goes to disk.
type ChunkRow struct {
	Index   int
	Channel string
	Body    string
}

// InsertChunksJob batch-inserts an exchange's envelopes with the COPY
// protocol.
func InsertChunksJob(exchangeID uuid.UUID, ts time.Time, chunks []ChunkRow) WriteJob {
	return WriteJobFunc(func(ctx context.Context, pool *pgxpool.Pool) error {
		rows := make([][]interface{}, len(chunks))
		for i, c := range chunks {
			rows[i] = []interface{}{
				ts,
				exchangeID,
				c.Index,
				c.Channel,
				c.Body,
				len(c.Body),
			}
		}

		_, err := pool.CopyFrom(ctx,
			pgx.Identifier{"chunks"},
			[]string{"ts", "exchange_id", "chunk_index", "channel", "body", "raw_bytes"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
}
