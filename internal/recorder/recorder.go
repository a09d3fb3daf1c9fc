// Package recorder drains the capture bus in the background and persists
// chat transcripts and backend lifecycle events, keeping storage latency
// off the streaming hot path.
package recorder

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/namikmesic/naga-shell/internal/bus"
	"github.com/namikmesic/naga-shell/internal/storage"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Recorder struct {
	writer *storage.BatchWriter

	mu      sync.Mutex
	pending map[string][]storage.ChunkRow
	opened  map[string]time.Time
}

func New(writer *storage.BatchWriter) *Recorder {
	return &Recorder{
		writer:  writer,
		pending: make(map[string][]storage.ChunkRow),
		opened:  make(map[string]time.Time),
	}
}

// Run subscribes to the capture stream and blocks until ctx is done.
func (r *Recorder) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.Subscribe("shell.>", r.Handle)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}

// Handle routes one bus message. Chunk envelopes accumulate per exchange
// and go to disk in a single COPY batch when the done marker arrives.
func (r *Recorder) Handle(msg *nats.Msg) {
	if msg.Subject == bus.ProcSubject {
		r.handleProcessEvent(msg.Data)
		return
	}

	if id, ok := bus.IsDoneSubject(msg.Subject); ok {
		r.flushExchange(id)
		return
	}

	if id, ok := bus.ExchangeID(msg.Subject); ok {
		r.handleChunk(id, msg.Data)
	}
}

func (r *Recorder) handleChunk(id string, data []byte) {
	var chunk bus.ChunkMessage
	if err := json.Unmarshal(data, &chunk); err != nil {
		log.Debug().Err(err).Str("exchange_id", id).Msg("malformed chunk message")
		return
	}

	r.mu.Lock()
	if _, ok := r.opened[id]; !ok {
		r.opened[id] = time.Now()
	}
	r.pending[id] = append(r.pending[id], storage.ChunkRow{
		Index:   chunk.Index,
		Channel: chunk.Channel,
		Body:    chunk.Text,
	})
	r.mu.Unlock()
}

func (r *Recorder) flushExchange(id string) {
	exchangeID, err := uuid.Parse(id)
	if err != nil {
		log.Debug().Str("exchange_id", id).Msg("unparseable exchange id on done subject")
		return
	}

	r.mu.Lock()
	rows := r.pending[id]
	ts, ok := r.opened[id]
	delete(r.pending, id)
	delete(r.opened, id)
	r.mu.Unlock()

	if !ok {
		ts = time.Now()
	}
	if len(rows) == 0 {
		return
	}

	r.writer.Enqueue(storage.InsertChunksJob(exchangeID, ts, rows))

	log.Debug().
		Str("exchange_id", id).
		Int("chunks", len(rows)).
		Msg("exchange transcript recorded")
}

func (r *Recorder) handleProcessEvent(data []byte) {
	var ev bus.ProcessEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Debug().Err(err).Msg("malformed process event")
		return
	}
	r.writer.Enqueue(storage.InsertProcessEventJob(
		time.Unix(0, ev.TS), ev.Kind, ev.PID, ev.ExitCode, ev.Detail,
	))
}

// PendingExchanges reports how many exchanges have buffered, unflushed
// chunks.
func (r *Recorder) PendingExchanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
