package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Settings carries the connection parameters for the shared Redis
// client. Redis serves only locks and pub/sub fan-out here, so the
// per-command timeouts are kept short: a slow lock acquisition is worse
// than a failed one.
type Settings struct {
	Addr     string
	Username string
	Password string
	PoolSize int // zero falls back to defaultPoolSize
}

const (
	defaultPoolSize = 10
	commandTimeout  = 2 * time.Second
	connectTimeout  = 5 * time.Second
)

// NewRedisClient dials Redis with the given settings and fails fast
// when the server is unreachable.
func NewRedisClient(s Settings) (*redis.Client, error) {
	poolSize := s.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         s.Addr,
		Username:     s.Username,
		Password:     s.Password,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
