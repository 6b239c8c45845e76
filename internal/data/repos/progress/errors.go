package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type StoreErrorKind string

const (
	KindConflict    StoreErrorKind = "conflict"
	KindRetryable   StoreErrorKind = "retryable"
	KindUnavailable StoreErrorKind = "unavailable"
	KindInternal    StoreErrorKind = "internal"
)

// StoreError tags a persistence failure with a coarse kind so callers can
// report it without inspecting driver errors.
type StoreError struct {
	Op   string
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) StoreErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return KindConflict // unique_violation
		case "40001", "40P01", "55P03":
			return KindRetryable // serialization/deadlock/lock_not_available
		case "57P01", "57P03", "08000", "08003", "08006":
			return KindUnavailable // admin_shutdown/cannot_connect_now/connection_exception
		}
		return KindInternal
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return KindConflict
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "timeout"):
		return KindRetryable
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "broken pipe"):
		return KindUnavailable
	default:
		return KindInternal
	}
}
