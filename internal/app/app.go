// Package app wires the storage driver, collaborators and services for
// the binaries. Both tiers of the persistence provider are selected
// here, never branched on inside business logic.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carebook/appointment-booking/internal/availability"
	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/config"
	"github.com/carebook/appointment-booking/internal/db"
	"github.com/carebook/appointment-booking/internal/identity"
	"github.com/carebook/appointment-booking/internal/metrics"
	"github.com/carebook/appointment-booking/internal/notify"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
	"github.com/carebook/appointment-booking/internal/registry"
)

type Backend struct {
	Cfg config.Config
	Log zerolog.Logger

	// Nil with the memory storage driver.
	PgPool *pgxpool.Pool
	Redis  *redis.Client

	Gateway  *identity.Gateway
	Slots    *availability.Store
	Registry *registry.Registry
	Engine   *booking.Engine
	Metrics  *metrics.Metrics
}

// Open connects the configured storage tier and assembles the services.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{
		Cfg:     cfg,
		Log:     log,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	var (
		identityRepo identity.Repository
		slotRepo     availability.Repository
		apptRepo     registry.Repository
		locker       redisclient.Locker
		sink         notify.Sink
	)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolSettings{MaxConns: cfg.PgMaxConns})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.PgPool = pool

		rdb, err := redisclient.NewRedisClient(redisclient.Settings{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.Redis = rdb

		identityRepo = identity.NewPgRepository(pool)
		slotRepo = availability.NewPgRepository(pool)
		apptRepo = registry.NewPgRepository(pool)
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		sink = notify.NewRedisSink(rdb)

	case config.DriverMemory:
		log.Warn().Msg("running on the in-memory storage tier, nothing will be persisted")
		identityRepo = identity.NewMemRepository()
		slotRepo = availability.NewMemRepository()
		apptRepo = registry.NewMemRepository()
		locker = redisclient.NoopLocker{}
		sink = notify.NewLogSink(log)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	b.Gateway = identity.NewGateway(identityRepo, cfg.JWTSecret, cfg.TokenTTL)
	b.Slots = availability.NewStore(slotRepo, availability.WithMinNotice(cfg.MinNotice))
	b.Registry = registry.New(apptRepo, sink, log)
	b.Engine = booking.NewEngine(b.Slots, b.Registry, identityRepo, locker, log,
		booking.WithCompletionGrace(cfg.CompletionGrace),
		booking.WithMetrics(b.Metrics),
	)

	return b, nil
}

func (b *Backend) Close() {
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.Log.Error().Err(err).Msg("closing redis")
		}
	}
	if b.PgPool != nil {
		b.PgPool.Close()
	}
}
