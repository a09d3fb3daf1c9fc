package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend process lifecycle event kinds.
const (
	ProcStarted     = "started"
	ProcExited      = "exited"
	ProcStartFailed = "start_failed"
)

func InsertProcessEventJob(ts time.Time, kind string, pid int, exitCode *int, detail string) WriteJob {
	return WriteJobFunc(func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, `
			INSERT INTO process_events (ts, kind, pid, exit_code, detail)
			VALUES ($1, $2, $3, $4, $5)`,
			ts, kind, nilIfZero(pid), exitCode, nilIfEmpty(detail),
		)
		return err
	})
}

func nilIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
