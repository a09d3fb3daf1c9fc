package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func frameAll(f *Framer, chunks [][]byte) []string {
	var blocks []string
	for _, c := range chunks {
		blocks = append(blocks, f.Push(c)...)
	}
	return append(blocks, f.Flush()...)
}

func TestFramer_SingleEvent(t *testing.T) {
	f := NewFramer()
	blocks := f.Push([]byte("data: abc\n\n"))
	require.Equal(t, []string{"data: abc"}, blocks)
	require.Empty(t, f.Flush(), "no remainder after a delimited event")
}

func TestFramer_MultipleEventsInOneChunk(t *testing.T) {
	f := NewFramer()
	blocks := f.Push([]byte("data: one\n\ndata: two\n\ndata: three\n\n"))
	require.Equal(t, []string{"data: one", "data: two", "data: three"}, blocks)
}

func TestFramer_DelimiterSplitAcrossChunks(t *testing.T) {
	f := NewFramer()
	require.Empty(t, f.Push([]byte("data: abc\n")))
	require.Equal(t, []string{"data: abc"}, f.Push([]byte("\ndata: def")))
	require.Equal(t, []string{"data: def"}, f.Flush())
}

func TestFramer_EmptyChunk(t *testing.T) {
	f := NewFramer()
	require.Empty(t, f.Push([]byte("data: abc")))
	require.Equal(t, []string{"data: abc", "\ndata: tail"}, f.Push([]byte("\n\n\ndata: tail\n\n")))
	require.Empty(t, f.Push(nil), "empty final chunk yields nothing")
	require.Empty(t, f.Flush())
}

func TestFramer_FlushMidEvent(t *testing.T) {
	f := NewFramer()
	require.Empty(t, f.Push([]byte("data: truncated")))
	require.Equal(t, []string{"data: truncated"}, f.Flush(),
		"end-of-stream flush yields the undelimited final event")
	require.Empty(t, f.Flush(), "flush is idempotent once drained")
}

func TestFramer_ConsecutiveDelimiters(t *testing.T) {
	f := NewFramer()
	blocks := f.Push([]byte("data: a\n\n\n\ndata: b\n\n"))
	require.Equal(t, []string{"data: a", "data: b"}, blocks)
}

func TestFramer_MultiByteCharacterSplitAcrossChunks(t *testing.T) {
	payload := []byte("data: 你好世界\n\n")
	for cut := 1; cut < len(payload); cut++ {
		f := NewFramer()
		blocks := frameAll(f, [][]byte{payload[:cut], payload[cut:]})
		require.Equal(t, []string{"data: 你好世界"}, blocks, "cut at byte %d", cut)
	}
}

// Framing is split-invariant: for any event stream and any partition of
// its bytes into chunks, the framed blocks are identical.
func TestFramer_SplitInvariance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "events")
		var wire []byte
		for i := 0; i < n; i++ {
			body := rapid.StringMatching(`[a-zA-Z0-9+/= 你好]{0,20}`).Draw(rt, "body")
			wire = append(wire, []byte("data: "+body+"\n\n")...)
		}

		reference := frameAll(NewFramer(), [][]byte{wire})

		var chunks [][]byte
		rest := wire
		for len(rest) > 0 {
			cut := rapid.IntRange(1, len(rest)).Draw(rt, "cut")
			chunks = append(chunks, rest[:cut])
			rest = rest[cut:]
		}

		require.Equal(t, reference, frameAll(NewFramer(), chunks))
	})
}
