package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// WriteJob is one unit of transcript work to run against the database.
type WriteJob interface {
	Execute(ctx context.Context, pool *pgxpool.Pool) error
}

// WriteJobFunc adapts a function into a WriteJob.
type WriteJobFunc func(ctx context.Context, pool *pgxpool.Pool) error

func (f WriteJobFunc) Execute(ctx context.Context, pool *pgxpool.Pool) error {
	return f(ctx, pool)
}

// WriterOptions tunes the batching behavior of a BatchWriter.
type WriterOptions struct {
	// Buffer is the queue capacity. Enqueue drops jobs once it is full.
	Buffer int
	// Batch is how many jobs trigger an immediate flush.
	Batch int
	// Flush is the interval at which partial batches go to disk anyway.
	Flush time.Duration
}

// BatchWriter takes transcript writes off the streaming hot path. Jobs
// queue on a buffered channel and flush either when a batch fills or on
// the flush interval. A full queue drops jobs with a warning rather than
// stalling a live chat stream.
type BatchWriter struct {
	pool  *pgxpool.Pool
	opts  WriterOptions
	queue chan WriteJob
	done  sync.WaitGroup
}

func NewBatchWriter(pool *pgxpool.Pool, opts WriterOptions) *BatchWriter {
	w := &BatchWriter{
		pool:  pool,
		opts:  opts,
		queue: make(chan WriteJob, opts.Buffer),
	}
	w.done.Add(1)
	go w.run()
	return w
}

func (w *BatchWriter) Enqueue(job WriteJob) {
	select {
	case w.queue <- job:
	default:
		log.Warn().Msg("transcript write queue full, dropping job")
	}
}

// Shutdown flushes everything still queued and stops the writer.
func (w *BatchWriter) Shutdown() {
	close(w.queue)
	w.done.Wait()
}

func (w *BatchWriter) run() {
	defer w.done.Done()

	ticker := time.NewTicker(w.opts.Flush)
	defer ticker.Stop()

	pending := make([]WriteJob, 0, w.opts.Batch)
	for {
		select {
		case job, ok := <-w.queue:
			if !ok {
				w.flush(pending)
				return
			}
			pending = append(pending, job)
			if len(pending) >= w.opts.Batch {
				w.flush(pending)
				pending = pending[:0]
			}
		case <-ticker.C:
			if len(pending) > 0 {
				w.flush(pending)
				pending = pending[:0]
			}
		}
	}
}

func (w *BatchWriter) flush(batch []WriteJob) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, job := range batch {
		if err := job.Execute(ctx, w.pool); err != nil {
			log.Error().Err(err).Msg("transcript write failed")
		}
	}
	log.Debug().Int("jobs", len(batch)).Msg("transcript batch flushed")
}
