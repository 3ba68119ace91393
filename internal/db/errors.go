package db

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carebook/appointment-booking/internal/apperr"
)

// Postgres error codes the adapters care about.
const (
	codeUniqueViolation = "23505"
	codeSerialization   = "40001"
	codeDeadlock        = "40P01"
)

// Classify maps a driver error onto the retryability taxonomy. All
// store-specific branching lives here so business logic never inspects
// driver errors directly.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindTransientStore, "store timeout", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.Wrap(apperr.KindTransientStore, "store unreachable", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerialization, codeDeadlock:
			return apperr.Wrap(apperr.KindTransientStore, "store contention", err)
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "unique constraint violated", err)
		}
		return apperr.Wrap(apperr.KindPermanentStore, "store rejected operation", err)
	}

	if pgconn.SafeToRetry(err) {
		return apperr.Wrap(apperr.KindTransientStore, "store error", err)
	}

	return apperr.Wrap(apperr.KindPermanentStore, "store error", err)
}

// IsUniqueViolation reports whether err is a unique-constraint failure on
// the named constraint (any constraint when name is empty).
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
