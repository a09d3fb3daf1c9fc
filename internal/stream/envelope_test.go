package stream

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestExtractData(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		payload string
		ok      bool
	}{
		{"data block", "data: aGVsbG8=", "aGVsbG8=", true},
		{"trailing newline trimmed", "data: aGVsbG8=\n", "aGVsbG8=", true},
		{"sentinel", "data: [DONE]", "[DONE]", true},
		{"comment block", ": keepalive", "", false},
		{"event field only", "event: ping", "", false},
		{"empty block", "", "", false},
		{"prefix requires space", "data:aGVsbG8=", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := ExtractData(tt.block)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.payload, payload)
		})
	}
}

func TestDecodeEnvelope_WellFormed(t *testing.T) {
	env := DecodeEnvelope(b64(`{"type":"content","text":"Hi"}`))
	require.Equal(t, Envelope{Channel: ChannelContent, Text: "Hi"}, env)

	env = DecodeEnvelope(b64(`{"type":"reasoning","text":"hmm"}`))
	require.Equal(t, Envelope{Channel: ChannelReasoning, Text: "hmm"}, env)
}

func TestDecodeEnvelope_EmptyTextIsValid(t *testing.T) {
	env := DecodeEnvelope(b64(`{"type":"content","text":""}`))
	require.Equal(t, Envelope{Channel: ChannelContent, Text: ""}, env)
}

func TestDecodeEnvelope_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Envelope
	}{
		{
			name:    "invalid base64 keeps raw payload",
			payload: "!!!not-base64!!!",
			want:    Envelope{Channel: ChannelContent, Text: "!!!not-base64!!!"},
		},
		{
			name:    "malformed json",
			payload: b64(`{"type":"content","text":`),
			want:    Envelope{Channel: ChannelContent, Text: `{"type":"content","text":`},
		},
		{
			name:    "plain text payload",
			payload: b64("session_id: abc123"),
			want:    Envelope{Channel: ChannelContent, Text: "session_id: abc123"},
		},
		{
			name:    "unknown type tag",
			payload: b64(`{"type":"tool_call","text":"x"}`),
			want:    Envelope{Channel: ChannelContent, Text: `{"type":"tool_call","text":"x"}`},
		},
		{
			name:    "json without type",
			payload: b64(`{"text":"x"}`),
			want:    Envelope{Channel: ChannelContent, Text: `{"text":"x"}`},
		},
		{
			name:    "empty payload",
			payload: "",
			want:    Envelope{Channel: ChannelContent, Text: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DecodeEnvelope(tt.payload))
		})
	}
}

// The decoder is total: any payload produces a well-formed envelope.
func TestDecodeEnvelope_NeverFails(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.String().Draw(rt, "payload")
		env := DecodeEnvelope(payload)
		require.Contains(t, []string{ChannelContent, ChannelReasoning}, env.Channel)
	})
}

func TestDecodeEnvelope_RoundTripAnyValidEnvelope(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		want := Envelope{
			Channel: rapid.SampledFrom([]string{ChannelContent, ChannelReasoning}).Draw(rt, "channel"),
			Text:    rapid.String().Draw(rt, "text"),
		}

		encoded, err := json.Marshal(want)
		require.NoError(t, err)

		require.Equal(t, want, DecodeEnvelope(b64(string(encoded))))
	})
}
