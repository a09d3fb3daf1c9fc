package stream

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

const (
	// ChannelContent carries the assistant's answer text.
	ChannelContent = "content"
	// ChannelReasoning carries intermediate reasoning text.
	ChannelReasoning = "reasoning"

	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Envelope is the decoded unit handed to the consumer: one fragment of
// text tagged with the channel it belongs to.
type Envelope struct {
	Channel string `json:"type"`
	Text    string `json:"text"`
}

// ExtractData returns the payload of an event block carrying a data field.
// Blocks without the prefix are not an error; they are simply skipped by
// the caller. Surrounding whitespace on the payload is trimmed.
func ExtractData(block string) (string, bool) {
	if !strings.HasPrefix(block, dataPrefix) {
		return "", false
	}
	return strings.TrimSpace(block[len(dataPrefix):]), true
}

// IsSentinel reports whether a data payload is the stream-end marker.
func IsSentinel(payload string) bool {
	return payload == doneSentinel
}

// DecodeEnvelope decodes one base64-encoded message into an Envelope.
// It is total: invalid base64 falls back to the raw payload, and decoded
// text that is not a well-formed {type, text} object (or carries an
// unknown tag) falls back to a content envelope wrapping the decoded text.
func DecodeEnvelope(payload string) Envelope {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Envelope{Channel: ChannelContent, Text: payload}
	}
	text := string(raw)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{Channel: ChannelContent, Text: text}
	}
	if env.Channel != ChannelContent && env.Channel != ChannelReasoning {
		return Envelope{Channel: ChannelContent, Text: text}
	}
	return env
}
