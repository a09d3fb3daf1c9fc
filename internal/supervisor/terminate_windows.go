//go:build windows

package supervisor

import (
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// terminator isolates the platform-specific kill protocol behind one
// capability, selected at build time.
type terminator interface {
	// Terminate signals pid to shut down. exited suppresses any deferred
	// escalation once the process is observed dead.
	Terminate(pid int, exited <-chan struct{})
}

// windowsTerminator issues a forceful tree kill in one step. taskkill /T
// takes descendants down with the process, so there is no grace period.
type windowsTerminator struct {
	run func(pid int) error
}

func newTerminator(time.Duration) terminator {
	return &windowsTerminator{
		run: func(pid int) error {
			return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
		},
	}
}

func (t *windowsTerminator) Terminate(pid int, _ <-chan struct{}) {
	if pid <= 0 {
		return
	}
	if err := t.run(pid); err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("taskkill failed (process may already be gone)")
	}
}
