package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"SHELL_PORT" envDefault:"8100"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend service the shell supervises and streams from.
	BackendBaseURL string `env:"NAGA_BACKEND_URL" envDefault:"http://127.0.0.1:8000"`

	// Launch mode. Packaged runs the standalone backend executable from
	// ResourceDir; otherwise Interpreter runs the entry script from
	// ProjectRoot.
	Packaged    bool   `env:"NAGA_PACKAGED" envDefault:"false"`
	ResourceDir string `env:"NAGA_RESOURCE_DIR" envDefault:"backend-dist/naga-backend"`
	ProjectRoot string `env:"NAGA_PROJECT_ROOT" envDefault:"."`
	Interpreter string `env:"NAGA_PYTHON" envDefault:"python"`

	// DebugConsole forces the diagnostic console in any mode.
	DebugConsole bool `env:"NAGA_DEBUG_CONSOLE" envDefault:"false"`

	// StopGraceMs is the SIGTERM-to-SIGKILL grace period on POSIX.
	StopGraceMs int `env:"STOP_GRACE_MS" envDefault:"1000"`

	// DatabaseURL is optional; without it the shell runs with the bus
	// only and no transcript store.
	DatabaseURL string `env:"DATABASE_URL"`

	NATSStoreDir     string `env:"NATS_STORE_DIR" envDefault:"/tmp/naga-shell-js"`
	WriterBufferSize int    `env:"WRITER_BUFFER_SIZE" envDefault:"10000"`
	WriterBatchSize  int    `env:"WRITER_BATCH_SIZE" envDefault:"100"`
	WriterFlushMs    int    `env:"WRITER_FLUSH_MS" envDefault:"100"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMs) * time.Millisecond
}
