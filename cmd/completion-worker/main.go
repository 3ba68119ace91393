package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebook/appointment-booking/internal/app"
	"github.com/carebook/appointment-booking/internal/config"
	"github.com/carebook/appointment-booking/internal/logging"
)

// The completion worker is the scheduler collaborator that moves
// past-due confirmed appointments to completed, and that reopens booked
// slots stranded by a lost release.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("completion-worker", cfg.Env)
	log.Info().Str("env", cfg.Env).
		Dur("interval", cfg.CompletionInterval).
		Dur("grace", cfg.CompletionGrace).
		Msg("completion-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.Open(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init failed")
	}
	defer backend.Close()

	// Run once at startup
	runOnce(rootCtx, backend)

	ticker := time.NewTicker(cfg.CompletionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, backend)
		}
	}
}

func runOnce(ctx context.Context, backend *app.Backend) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := backend.Engine.CompleteDue(runCtx)
	if err != nil {
		// Partial progress is fine, the next tick picks up the rest.
		backend.Log.Error().Err(err).Msg("completion run error")
		return
	}

	released, err := backend.Engine.ReleaseStranded(runCtx)
	if err != nil {
		backend.Log.Error().Err(err).Msg("stranded-slot sweep error")
	}

	backend.Log.Info().Int("completed", n).Int("released", released).
		Dur("took", time.Since(start)).Msg("completion run done")
}
