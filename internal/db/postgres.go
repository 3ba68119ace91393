package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSettings tunes the shared pgx pool per deployment. Zero values
// fall back to the defaults below; the api-server carries more
// concurrent requests than the workers, so it typically runs with a
// larger MaxConns.
type PoolSettings struct {
	MaxConns int32
	MinConns int32
}

const (
	defaultMaxConns = 10
	defaultMinConns = 1

	connMaxLifetime   = time.Hour
	connMaxIdleTime   = 15 * time.Minute
	healthCheckPeriod = 30 * time.Second
	pingTimeout       = 5 * time.Second
)

// ConnectPostgres opens a pgx pool against dsn, applies the pool
// settings and fails fast when the database is unreachable.
func ConnectPostgres(ctx context.Context, dsn string, settings PoolSettings) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	if settings.MaxConns > 0 {
		cfg.MaxConns = settings.MaxConns
	}
	cfg.MinConns = defaultMinConns
	if settings.MinConns > 0 {
		cfg.MinConns = settings.MinConns
	}
	cfg.MaxConnLifetime = connMaxLifetime
	cfg.MaxConnIdleTime = connMaxIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
