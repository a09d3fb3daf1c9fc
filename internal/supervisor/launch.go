package supervisor

import (
	"path/filepath"
	"runtime"
	"time"
)

const (
	// backendExecutable is the packaged backend binary, built into the
	// resource directory by the release pipeline.
	backendExecutable = "naga-backend"

	// devEntryScript is the backend entry point when running from the
	// project tree with an interpreter.
	devEntryScript = "main.py"

	// unbufferedEnv forces the backend to flush output line-by-line so
	// the shell sees log lines as they happen.
	unbufferedEnv = "PYTHONUNBUFFERED=1"
)

// Config describes how the backend process is launched and stopped.
type Config struct {
	// Packaged selects the standalone executable from ResourceDir.
	// When false, Interpreter runs the entry script from ProjectRoot.
	Packaged    bool
	ResourceDir string
	ProjectRoot string
	Interpreter string

	// Console runs the backend under a platform terminal host with all
	// standard streams inherited instead of captured.
	Console bool

	// StopGrace is how long stop() waits between SIGTERM and SIGKILL on
	// POSIX platforms.
	StopGrace time.Duration
}

// Launch is the resolved command line for one backend run.
type Launch struct {
	Command string
	Args    []string
	Dir     string
}

// ResolveLaunch maps the build mode onto a concrete command. Packaged
// deployments run the standalone executable from the resource directory
// with no arguments; development runs the interpreter against the entry
// script from the project root.
func ResolveLaunch(cfg Config) Launch {
	if cfg.Packaged {
		name := backendExecutable
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		return Launch{
			Command: filepath.Join(cfg.ResourceDir, name),
			Dir:     cfg.ResourceDir,
		}
	}
	return Launch{
		Command: cfg.Interpreter,
		Args:    []string{devEntryScript},
		Dir:     cfg.ProjectRoot,
	}
}

// ConsoleEnabled decides whether the diagnostic console variant is used.
// An explicit environment override wins in any mode; otherwise only a
// packaged build may opt in via its build metadata flag. Development mode
// never auto-enables it.
func ConsoleEnabled(envOverride, packaged, buildFlag bool) bool {
	if envOverride {
		return true
	}
	return packaged && buildFlag
}
