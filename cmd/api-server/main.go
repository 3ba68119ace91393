package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carebook/appointment-booking/internal/api"
	"github.com/carebook/appointment-booking/internal/app"
	"github.com/carebook/appointment-booking/internal/config"
	"github.com/carebook/appointment-booking/internal/logging"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config depends on the env, so fall back to stderr here.
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).
		Str("storage_driver", cfg.StorageDriver).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.Open(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init failed")
	}
	defer backend.Close()

	router := api.NewRouter(api.RouterConfig{
		Gateway:  backend.Gateway,
		Slots:    backend.Slots,
		Engine:   backend.Engine,
		Registry: backend.Registry,
		Metrics:  backend.Metrics,
		Logger:   log,
		PgPool:   backend.PgPool,
		Redis:    backend.Redis,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	log.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
