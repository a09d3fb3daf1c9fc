//go:build !windows

package supervisor

import (
	"syscall"
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

// posixTerminator sends SIGTERM immediately and arms a deferred SIGKILL.
// The escalation timer runs on a goroutine of its own and never keeps the
// host process alive. Signal errors mean the process is already gone and
// are logged, not surfaced.
type posixTerminator struct {
	grace  time.Duration
	signal func(pid int, sig syscall.Signal) error
}

func newTerminator(grace time.Duration) terminator {
	return &posixTerminator{grace: grace, signal: syscall.Kill}
}

func (t *posixTerminator) Terminate(pid int, exited <-chan struct{}) {
	if pid <= 0 {
		return
	}

	if err := t.signal(pid, syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("SIGTERM delivery failed")
	}

	go func() {
		timer := time.NewTimer(t.grace)
		defer timer.Stop()

		select {
		case <-exited:
			// Died within the grace period; never escalate.
		case <-timer.C:
			if err := t.signal(pid, syscall.SIGKILL); err != nil {
				log.Debug().Err(err).Int("pid", pid).Msg("SIGKILL delivery failed")
			} else {
				log.Warn().Int("pid", pid).Dur("grace", t.grace).Msg("backend ignored SIGTERM, sent SIGKILL")
			}
		}
	}()
}
