package bus

import (
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
)

const (
	StreamName  = "NAGASHELL"
	chatPrefix  = "shell.chat."
	doneSuffix  = ".done"
	ProcSubject = "shell.proc.events"
)

func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"shell.>"},
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}

// ChunkSubject carries one decoded envelope of an exchange.
func ChunkSubject(exchangeID string) string {
	return chatPrefix + exchangeID
}

// DoneSubject marks the end of an exchange's envelope stream.
func DoneSubject(exchangeID string) string {
	return chatPrefix + exchangeID + doneSuffix
}

// IsDoneSubject reports whether a subject is an exchange terminator, and
// if so which exchange it closes.
func IsDoneSubject(subject string) (string, bool) {
	if !strings.HasPrefix(subject, chatPrefix) || !strings.HasSuffix(subject, doneSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(subject, chatPrefix), doneSuffix), true
}

// ExchangeID extracts the exchange id from a chunk subject.
func ExchangeID(subject string) (string, bool) {
	if !strings.HasPrefix(subject, chatPrefix) || strings.HasSuffix(subject, doneSuffix) {
		return "", false
	}
	return strings.TrimPrefix(subject, chatPrefix), true
}
