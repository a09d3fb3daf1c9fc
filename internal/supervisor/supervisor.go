// Package supervisor owns the single backend child process: spawning,
// output capture, exit observation, and the graceful-then-forced
// termination protocol.
package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const scanBufSize = 1024 * 1024 // max backend log line length

// ErrAlreadyRunning is returned by Start while a backend process is live.
// At most one backend process exists per shell instance.
var ErrAlreadyRunning = errors.New("supervisor: backend already running")

// Callbacks are the observer hooks invoked as the process produces output
// and exits. They are called from the supervisor's reader and monitor
// goroutines; implementations must not block.
type Callbacks struct {
	// OnOutput receives one line per call, trailing whitespace trimmed.
	// source is "stdout" or "stderr".
	OnOutput func(source, line string)

	// OnExit receives the exit code once the process has terminated,
	// expectedly or not. The process handle is already cleared when it
	// fires; a fresh Start is required to run the backend again.
	OnExit func(code int)

	// OnError receives asynchronous read failures. Spawn failures are
	// reported both here and as the Start return value.
	OnError func(err error)
}

// Supervisor manages zero-or-one backend process.
type Supervisor struct {
	cfg       Config
	callbacks Callbacks
	terminate terminator

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{} // closed by the monitor goroutine on exit
}

func New(cfg Config, callbacks Callbacks) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		callbacks: callbacks,
		terminate: newTerminator(cfg.StopGrace),
	}
}

// Start resolves the launch mode and spawns the backend. In capture mode
// stdout and stderr are surfaced line-by-line through OnOutput; in console
// mode a platform terminal host wraps the command and the standard streams
// are inherited instead.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrAlreadyRunning
	}

	launch := ResolveLaunch(s.cfg)

	var cmd *exec.Cmd
	capture := !s.cfg.Console
	if capture {
		cmd = exec.Command(launch.Command, launch.Args...)
	} else {
		cmd = consoleCommand(launch)
	}
	cmd.Dir = launch.Dir
	cmd.Env = append(os.Environ(), unbufferedEnv)

	var stdout, stderr io.ReadCloser
	if capture {
		var err error
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return fmt.Errorf("supervisor: stdout pipe: %w", err)
		}
		if stderr, err = cmd.StderrPipe(); err != nil {
			return fmt.Errorf("supervisor: stderr pipe: %w", err)
		}
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("supervisor: start backend: %w", err)
		log.Error().Err(err).Str("command", launch.Command).Msg("backend failed to start")
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(err)
		}
		return err
	}

	s.cmd = cmd
	s.exited = make(chan struct{})

	log.Info().
		Int("pid", cmd.Process.Pid).
		Str("command", launch.Command).
		Bool("console", s.cfg.Console).
		Msg("backend started")

	var readers sync.WaitGroup
	if capture {
		readers.Add(2)
		go func() {
			defer readers.Done()
			s.scanLines("stdout", stdout)
		}()
		go func() {
			defer readers.Done()
			s.scanLines("stderr", stderr)
		}()
	}

	go s.monitorExit(cmd, s.exited, &readers)

	return nil
}

// Stop issues the two-stage termination protocol and returns immediately;
// actual process death is observed asynchronously via OnExit. The handle
// is cleared right away, so Stop with no live process is a safe no-op and
// a second Stop never re-signals.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		log.Debug().Msg("stop requested with no live backend")
		return
	}

	log.Info().Int("pid", cmd.Process.Pid).Msg("stopping backend")
	s.terminate.Terminate(cmd.Process.Pid, exited)
}

// Running reports whether a backend process handle is live.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Pid returns the live backend pid, if any.
func (s *Supervisor) Pid() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0, false
	}
	return s.cmd.Process.Pid, true
}

// consoleCommand wraps a launch in the platform terminal host. On Windows
// the quoted command line is handed to "start"; elsewhere the command runs
// directly with the shell's own streams.
func consoleCommand(l Launch) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/c", "start", backendExecutable, consoleCommandLine(l))
	}
	return exec.Command(l.Command, l.Args...)
}

func (s *Supervisor) scanLines(source string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if s.callbacks.OnOutput != nil {
			s.callbacks.OnOutput(source, line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Str("source", source).Msg("backend output read failed")
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(fmt.Errorf("supervisor: read %s: %w", source, err))
		}
	}
}

// monitorExit is the sole caller of cmd.Wait. It waits for the output
// readers first so the pipes drain fully, clears the handle, then reports
// the exit code.
func (s *Supervisor) monitorExit(cmd *exec.Cmd, exited chan struct{}, readers *sync.WaitGroup) {
	readers.Wait()
	err := cmd.Wait()
	code := exitCode(err)
	close(exited)

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Int("code", code).Msg("backend exited")
	} else {
		log.Info().Int("code", code).Msg("backend exited")
	}
	if s.callbacks.OnExit != nil {
		s.callbacks.OnExit(code)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
