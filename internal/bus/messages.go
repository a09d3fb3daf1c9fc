package bus

// ChunkMessage is one decoded envelope published on an exchange's chunk
// subject.
type ChunkMessage struct {
	Index   int    `json:"index"`
	Channel string `json:"type"`
	Text    string `json:"text"`
}

// DoneMessage closes an exchange's envelope stream.
type DoneMessage struct {
	TS     int64  `json:"ts"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Chunks int    `json:"chunks"`
}

// ProcessEvent reports a backend lifecycle transition on ProcSubject.
type ProcessEvent struct {
	TS       int64  `json:"ts"`
	Kind     string `json:"kind"`
	PID      int    `json:"pid,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
