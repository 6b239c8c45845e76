package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want StoreErrorKind
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, KindConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindRetryable},
		{"shutdown", &pgconn.PgError{Code: "57P01"}, KindUnavailable},
		{"other pg", &pgconn.PgError{Code: "42P01"}, KindInternal},
		{"deadline", context.DeadlineExceeded, KindRetryable},
		{"sqlite locked", errors.New("database is locked"), KindRetryable},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapStoreError("write", tc.err)
			var se *StoreError
			if !errors.As(err, &se) {
				t.Fatalf("want *StoreError got=%T", err)
			}
			if se.Kind != tc.want {
				t.Fatalf("kind: want=%s got=%s", tc.want, se.Kind)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("wrapped error lost")
			}
		})
	}
	if wrapStoreError("write", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
