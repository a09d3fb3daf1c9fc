package recorder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/namikmesic/naga-shell/internal/bus"
	"github.com/namikmesic/naga-shell/internal/storage"
	nats "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// idleWriter returns a writer that buffers jobs without touching the
// database, so routing can be tested against in-memory state only.
func idleWriter() *storage.BatchWriter {
	return storage.NewBatchWriter(nil, storage.WriterOptions{Buffer: 64, Batch: 64, Flush: time.Hour})
}

func chunkMsg(t *testing.T, exchangeID string, index int, text string) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(bus.ChunkMessage{Index: index, Channel: "content", Text: text})
	require.NoError(t, err)
	return &nats.Msg{Subject: bus.ChunkSubject(exchangeID), Data: data}
}

func doneMsg(t *testing.T, exchangeID string) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(bus.DoneMessage{TS: time.Now().UnixNano(), Status: storage.StatusComplete})
	require.NoError(t, err)
	return &nats.Msg{Subject: bus.DoneSubject(exchangeID), Data: data}
}

func TestHandle_ChunksAccumulateUntilDone(t *testing.T) {
	r := New(idleWriter())
	id := uuid.NewString()

	r.Handle(chunkMsg(t, id, 0, "first"))
	r.Handle(chunkMsg(t, id, 1, "second"))
	require.Equal(t, 1, r.PendingExchanges())

	r.Handle(doneMsg(t, id))
	require.Equal(t, 0, r.PendingExchanges(), "done marker flushes the exchange")
}

func TestHandle_InterleavedExchangesStaySeparate(t *testing.T) {
	r := New(idleWriter())
	a, b := uuid.NewString(), uuid.NewString()

	r.Handle(chunkMsg(t, a, 0, "a0"))
	r.Handle(chunkMsg(t, b, 0, "b0"))
	r.Handle(chunkMsg(t, a, 1, "a1"))
	require.Equal(t, 2, r.PendingExchanges())

	r.Handle(doneMsg(t, a))
	require.Equal(t, 1, r.PendingExchanges(), "only the finished exchange is flushed")

	r.Handle(doneMsg(t, b))
	require.Equal(t, 0, r.PendingExchanges())
}

func TestHandle_MalformedChunkIsIgnored(t *testing.T) {
	r := New(idleWriter())
	id := uuid.NewString()

	r.Handle(&nats.Msg{Subject: bus.ChunkSubject(id), Data: []byte("{not json")})
	require.Equal(t, 0, r.PendingExchanges())
}

func TestHandle_DoneWithBadExchangeIDKeepsPending(t *testing.T) {
	r := New(idleWriter())

	r.Handle(chunkMsg(t, "not-a-uuid", 0, "orphan"))
	r.Handle(doneMsg(t, "not-a-uuid"))
	require.Equal(t, 1, r.PendingExchanges(), "unparseable ids never flush")
}

func TestHandle_DoneWithoutChunksIsNoOp(t *testing.T) {
	r := New(idleWriter())
	r.Handle(doneMsg(t, uuid.NewString()))
	require.Equal(t, 0, r.PendingExchanges())
}

func TestHandle_ProcessEventsDoNotTouchExchanges(t *testing.T) {
	r := New(idleWriter())
	code := 0
	data, err := json.Marshal(bus.ProcessEvent{
		TS:       time.Now().UnixNano(),
		Kind:     storage.ProcExited,
		PID:      4321,
		ExitCode: &code,
	})
	require.NoError(t, err)

	r.Handle(&nats.Msg{Subject: bus.ProcSubject, Data: data})
	require.Equal(t, 0, r.PendingExchanges())
}

func TestHandle_UnrelatedSubjectIsDropped(t *testing.T) {
	r := New(idleWriter())
	r.Handle(&nats.Msg{Subject: "shell.other.noise", Data: []byte("x")})
	require.Equal(t, 0, r.PendingExchanges())
}
