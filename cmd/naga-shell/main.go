package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/namikmesic/naga-shell/internal/bus"
	"github.com/namikmesic/naga-shell/internal/config"
	"github.com/namikmesic/naga-shell/internal/recorder"
	"github.com/namikmesic/naga-shell/internal/relay"
	"github.com/namikmesic/naga-shell/internal/storage"
	"github.com/namikmesic/naga-shell/internal/supervisor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// consoleBuild is stamped by the release pipeline
// (-ldflags "-X main.consoleBuild=1") to enable the diagnostic console
// in packaged builds.
var consoleBuild string

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	ctx := context.Background()

	// Transcript store is optional: a desktop install without Postgres
	// runs with the capture bus only.
	var writer *storage.BatchWriter
	if cfg.DatabaseURL != "" {
		pool, err := storage.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		writer = storage.NewBatchWriter(pool, storage.WriterOptions{
			Buffer: cfg.WriterBufferSize,
			Batch:  cfg.WriterBatchSize,
			Flush:  time.Duration(cfg.WriterFlushMs) * time.Millisecond,
		})
	}

	captureBus, err := bus.Start(cfg.NATSStoreDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start capture bus")
	}
	js := captureBus.JetStream()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	if writer != nil {
		rec := recorder.New(writer)
		go func() {
			if err := rec.Run(consumerCtx, js); err != nil {
				log.Error().Err(err).Msg("recorder stopped")
			}
		}()
	}

	publishProc := func(ev bus.ProcessEvent) {
		ev.TS = time.Now().UnixNano()
		data, _ := json.Marshal(ev)
		if _, err := js.Publish(bus.ProcSubject, data); err != nil {
			log.Debug().Err(err).Msg("process event publish failed")
		}
	}

	sup := supervisor.New(supervisor.Config{
		Packaged:    cfg.Packaged,
		ResourceDir: cfg.ResourceDir,
		ProjectRoot: cfg.ProjectRoot,
		Interpreter: cfg.Interpreter,
		Console:     supervisor.ConsoleEnabled(cfg.DebugConsole, cfg.Packaged, consoleBuild != ""),
		StopGrace:   cfg.StopGrace(),
	}, supervisor.Callbacks{
		OnOutput: func(source, line string) {
			log.Info().Str("backend", source).Msg(line)
		},
		OnExit: func(code int) {
			publishProc(bus.ProcessEvent{Kind: storage.ProcExited, ExitCode: &code})
		},
		OnError: func(err error) {
			publishProc(bus.ProcessEvent{Kind: storage.ProcStartFailed, Detail: err.Error()})
		},
	})

	// Spawn failure is logged and published, never fatal: the UI surface
	// reports backend health through /api/health.
	if err := sup.Start(); err == nil {
		if pid, ok := sup.Pid(); ok {
			publishProc(bus.ProcessEvent{Kind: storage.ProcStarted, PID: pid})
		}
	}

	handler := relay.NewHandler(relay.NewClient(cfg.BackendBaseURL), writer, js, sup)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("backend", cfg.BackendBaseURL).
			Bool("packaged", cfg.Packaged).
			Msg("naga shell started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-done
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	server.Shutdown(shutdownCtx)
	sup.Stop()
	consumerCancel()
	captureBus.Close()
	if writer != nil {
		writer.Shutdown()
	}
	log.Info().Msg("shutdown complete")
}
