package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	id := "8f14e45f-ceea-4672-950f-54d298cd9a22"

	require.Equal(t, "shell.chat."+id, ChunkSubject(id))
	require.Equal(t, "shell.chat."+id+".done", DoneSubject(id))

	got, ok := ExchangeID(ChunkSubject(id))
	require.True(t, ok)
	require.Equal(t, id, got)

	got, ok = IsDoneSubject(DoneSubject(id))
	require.True(t, ok)
	require.Equal(t, id, got)
}

func TestSubjectClassification(t *testing.T) {
	_, ok := ExchangeID(DoneSubject("x"))
	require.False(t, ok, "done subject is not a chunk subject")

	_, ok = IsDoneSubject(ChunkSubject("x"))
	require.False(t, ok, "chunk subject is not a done subject")

	_, ok = ExchangeID(ProcSubject)
	require.False(t, ok)

	_, ok = IsDoneSubject("other.topic")
	require.False(t, ok)
}
