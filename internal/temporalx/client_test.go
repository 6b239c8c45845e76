package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tc := range cases {
		if got := ClampBackoff(100*time.Millisecond, time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want=%v got=%v", tc.attempt, tc.want, got)
		}
	}
	if got := ClampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("default base: want=250ms got=%v", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{status.Error(codes.Unavailable, "down"), true},
		{status.Error(codes.ResourceExhausted, "busy"), true},
		{status.Error(codes.PermissionDenied, "no"), false},
		{context.DeadlineExceeded, true},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableRPC(tc.err); got != tc.want {
			t.Fatalf("%v: want=%v got=%v", tc.err, tc.want, got)
		}
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(Config{}, nil)
	if err != nil || c != nil {
		t.Fatalf("want nil client and nil error, got client=%v err=%v", c, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("NOTIFY_REPLAY_CRON", "")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("expected disabled config")
	}
	if cfg.Namespace != "progress-reconciler" || cfg.ReplayCron != "*/10 * * * *" {
		t.Fatalf("defaults: got namespace=%q cron=%q", cfg.Namespace, cfg.ReplayCron)
	}
}
