package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carebook/appointment-booking/internal/availability"
	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/identity"
	"github.com/carebook/appointment-booking/internal/metrics"
	"github.com/carebook/appointment-booking/internal/registry"
)

type RouterConfig struct {
	Gateway  *identity.Gateway
	Slots    *availability.Store
	Engine   *booking.Engine
	Registry *registry.Registry
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger

	// Nil with the memory storage driver.
	PgPool *pgxpool.Pool
	Redis  *redis.Client

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", registerHandler(cfg.Gateway))
	r.Post("/auth/login", loginHandler(cfg.Gateway))

	// Browsing availability is open; everything that mutates requires an
	// authenticated identity.
	r.Get("/slots", listOpenSlotsHandler(cfg.Slots))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Gateway))

		r.Post("/slots", publishSlotHandler(cfg.Slots))
		r.Delete("/slots/{id}", withdrawSlotHandler(cfg.Slots))

		r.Post("/appointments", bookHandler(cfg.Engine))
		r.Get("/appointments", listAppointmentsHandler(cfg.Registry))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Registry))
		r.Post("/appointments/{id}/status", setStatusHandler(cfg.Engine))
	})

	return r
}
