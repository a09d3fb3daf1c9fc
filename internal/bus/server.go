// Package bus runs the in-process JetStream capture bus that decouples
// the chat relay hot path from transcript persistence.
package bus

import (
	"fmt"
	"time"

	server "github.com/nats-io/nats-server/v2/server"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Bus owns the embedded NATS server, its in-process client connection,
// and the capture stream. Nothing listens on a network socket.
type Bus struct {
	ns *server.Server
	nc *nats.Conn
	js nats.JetStreamContext
}

// Start boots the embedded server, connects in process, and ensures the
// capture stream exists.
func Start(storeDir string) (*Bus, error) {
	ns, err := server.NewServer(&server.Options{
		DontListen: true,
		JetStream:  true,
		StoreDir:   storeDir,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: create server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("bus: server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("bus: connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("bus: jetstream context: %w", err)
	}
	if err := EnsureStream(js); err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	log.Debug().Str("store_dir", storeDir).Msg("capture bus ready")
	return &Bus{ns: ns, nc: nc, js: js}, nil
}

func (b *Bus) JetStream() nats.JetStreamContext { return b.js }

// Close drains the client then stops the server, waiting for a clean
// shutdown so the JetStream store is flushed.
func (b *Bus) Close() {
	b.nc.Drain()
	b.ns.Shutdown()
	b.ns.WaitForShutdown()
}
