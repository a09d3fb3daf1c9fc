// Package relay exposes the chat endpoint the UI surface talks to. Each
// call opens one streamed exchange against the backend, re-emits decoded
// envelopes to the UI, and tees them onto the capture bus.
package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/namikmesic/naga-shell/internal/bus"
	"github.com/namikmesic/naga-shell/internal/storage"
	"github.com/namikmesic/naga-shell/internal/stream"
	"github.com/namikmesic/naga-shell/internal/supervisor"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	client *Client
	writer *storage.BatchWriter // nil when no transcript store is configured
	js     nats.JetStreamContext
	sup    *supervisor.Supervisor
	mux    *http.ServeMux
}

func NewHandler(client *Client, writer *storage.BatchWriter, js nats.JetStreamContext, sup *supervisor.Supervisor) *Handler {
	h := &Handler{
		client: client,
		writer: writer,
		js:     js,
		sup:    sup,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /api/chat", h.handleChat)
	h.mux.HandleFunc("GET /api/health", h.handleHealth)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	exchangeID := uuid.New()
	start := time.Now()

	body, err := h.client.OpenStream(r.Context(), r.Body)
	if err != nil {
		log.Error().Err(err).Str("exchange_id", exchangeID.String()).Msg("backend stream failed to open")
		h.finish(exchangeID, storage.StatusErrored, err.Error(), start, 0)
		http.Error(w, "backend unavailable", http.StatusBadGateway)
		return
	}

	sess, err := stream.Open(body)
	if err != nil {
		// Handshake and pre-handshake transport failures abort the call
		// before any content is surfaced.
		log.Error().Err(err).Str("exchange_id", exchangeID.String()).Msg("session handshake failed")
		h.record(storage.InsertExchangeJob(&storage.ExchangeRecord{ID: exchangeID, Timestamp: start}))
		h.finish(exchangeID, storage.StatusErrored, err.Error(), start, 0)
		http.Error(w, "invalid backend stream", http.StatusBadGateway)
		return
	}
	defer sess.Close()

	h.record(storage.InsertExchangeJob(&storage.ExchangeRecord{
		ID:        exchangeID,
		Timestamp: start,
		SessionID: sess.ID(),
	}))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Session-Id", sess.ID())
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	chunkSubject := bus.ChunkSubject(exchangeID.String())
	status := storage.StatusComplete
	errMsg := ""
	count := 0

	for {
		env, err := sess.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Transport error mid-stream: surfaced to the caller as a
			// terminal error event; the reader is already released.
			status = storage.StatusErrored
			errMsg = err.Error()
			writeErrorEvent(w, err)
			break
		}

		h.publish(chunkSubject, bus.ChunkMessage{Index: count, Channel: env.Channel, Text: env.Text})
		count++

		if !writeEnvelope(w, env) {
			status = storage.StatusCancelled
			break
		}
		if canFlush {
			flusher.Flush()
		}
	}

	if status == storage.StatusComplete {
		io.WriteString(w, "data: [DONE]\n\n")
		if canFlush {
			flusher.Flush()
		}
	}

	h.publish(bus.DoneSubject(exchangeID.String()), bus.DoneMessage{
		TS:     start.UnixNano(),
		Status: status,
		Error:  errMsg,
		Chunks: count,
	})
	h.finish(exchangeID, status, errMsg, start, count)

	log.Info().
		Str("exchange_id", exchangeID.String()).
		Str("session_id", sess.ID()).
		Str("status", status).
		Int("chunks", count).
		Dur("duration", time.Since(start)).
		Msg("chat exchange finished")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	pid, running := h.sup.Pid()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"backend_running": running,
		"backend_pid":     pid,
	})
}

func (h *Handler) record(job storage.WriteJob) {
	if h.writer != nil {
		h.writer.Enqueue(job)
	}
}

func (h *Handler) finish(id uuid.UUID, status, errMsg string, start time.Time, chunks int) {
	h.record(storage.FinishExchangeJob(id, status, errMsg, int(time.Since(start).Milliseconds()), chunks))
}

func (h *Handler) publish(subject string, msg any) {
	if h.js == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if _, err := h.js.Publish(subject, data); err != nil {
		log.Debug().Err(err).Str("subject", subject).Msg("bus publish failed")
	}
}

func writeEnvelope(w io.Writer, env stream.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return true
	}
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return false
	}
	return true
}

func writeErrorEvent(w io.Writer, err error) {
	io.WriteString(w, "event: error\ndata: "+err.Error()+"\n\n")
}
