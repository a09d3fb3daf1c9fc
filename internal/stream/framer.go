package stream

import (
	"bytes"
)

// eventDelimiter separates event blocks on the wire: a blank line.
var eventDelimiter = []byte("\n\n")

// Framer splits an arbitrarily chunked byte stream into event blocks.
// It maintains a carry-over buffer so that a delimiter (or a multi-byte
// character) split across two chunks reassembles correctly. The framer
// knows nothing about message semantics, it only finds block boundaries.
type Framer struct {
	buffer []byte
}

func NewFramer() *Framer {
	return &Framer{}
}

// Push appends a raw chunk and returns every fully delimited event block.
// The trailing undelimited remainder stays buffered for the next chunk.
// Empty blocks (consecutive delimiters) are dropped.
func (f *Framer) Push(chunk []byte) []string {
	f.buffer = append(f.buffer, chunk...)
	var blocks []string

	for {
		idx := bytes.Index(f.buffer, eventDelimiter)
		if idx == -1 {
			break
		}

		block := f.buffer[:idx]
		f.buffer = f.buffer[idx+len(eventDelimiter):]

		if len(block) > 0 {
			blocks = append(blocks, string(block))
		}
	}

	return blocks
}

// Flush drains the buffer at end of stream. A stream that ends mid-event
// (no trailing delimiter) still yields its final block here.
func (f *Framer) Flush() []string {
	if len(f.buffer) == 0 {
		return nil
	}

	var blocks []string
	for _, block := range bytes.Split(f.buffer, eventDelimiter) {
		if len(block) > 0 {
			blocks = append(blocks, string(block))
		}
	}
	f.buffer = nil
	return blocks
}
