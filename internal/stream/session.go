package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const sessionPrefix = "session_id: "

// ErrHandshake is returned when the first message of a stream does not
// carry a session identifier. The caller sees no envelopes in that case.
var ErrHandshake = errors.New("stream: missing session handshake")

// Session is a single-pass, pull-driven view of one chat exchange.
// Open consumes the handshake message; every subsequent data message is
// decoded lazily on Next. The underlying reader is released on every exit
// path: sentinel, EOF, transport error, or the caller abandoning the
// stream via Close.
type Session struct {
	id     string
	body   io.ReadCloser
	framer *Framer

	pending  []string // extracted payloads not yet decoded
	readBuf  []byte
	done     bool // sentinel seen or stream drained; no further reads
	released bool
}

// Open wraps a response body and performs the session handshake. On any
// failure the body is closed before returning. An empty stream (immediate
// EOF) is a handshake failure.
func Open(body io.ReadCloser) (*Session, error) {
	s := &Session{
		body:    body,
		framer:  NewFramer(),
		readBuf: make([]byte, 32*1024),
	}

	first, err := s.nextPayload()
	if err != nil {
		s.release()
		if err == io.EOF {
			return nil, ErrHandshake
		}
		return nil, fmt.Errorf("stream: handshake read: %w", err)
	}
	if !strings.HasPrefix(first, sessionPrefix) {
		s.release()
		return nil, fmt.Errorf("%w: got %q", ErrHandshake, first)
	}

	s.id = first[len(sessionPrefix):]
	return s, nil
}

// ID returns the session identifier extracted during the handshake.
func (s *Session) ID() string {
	return s.id
}

// Next returns the next decoded envelope. It returns io.EOF once the
// sentinel has been read or the stream is exhausted, and propagates
// transport errors after releasing the reader.
func (s *Session) Next() (Envelope, error) {
	payload, err := s.nextPayload()
	if err != nil {
		return Envelope{}, err
	}
	return DecodeEnvelope(payload), nil
}

// Close releases the underlying reader. Safe to call at any point and
// any number of times; Next returns io.EOF afterwards.
func (s *Session) Close() error {
	s.done = true
	s.pending = nil
	return s.release()
}

// nextPayload pulls chunks from the body until a data payload is
// available. Non-data blocks are dropped. Once the sentinel is seen no
// further reads are issued, but payloads framed before it still drain.
func (s *Session) nextPayload() (string, error) {
	for {
		if len(s.pending) > 0 {
			payload := s.pending[0]
			s.pending = s.pending[1:]
			return payload, nil
		}
		if s.done {
			return "", io.EOF
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			s.ingest(s.framer.Push(s.readBuf[:n]))
		}
		if err != nil {
			if !s.done {
				s.ingest(s.framer.Flush())
				s.done = true
			}
			s.release()
			if err != io.EOF {
				return "", err
			}
		}
	}
}

// ingest filters framed blocks down to data payloads. The sentinel marks
// the stream done and discards everything framed after it.
func (s *Session) ingest(blocks []string) {
	for _, block := range blocks {
		payload, ok := ExtractData(block)
		if !ok {
			continue
		}
		if IsSentinel(payload) {
			s.done = true
			s.release()
			return
		}
		s.pending = append(s.pending, payload)
	}
}

func (s *Session) release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.body.Close()
}
