package index

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

func TestRedisProgressIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	ix := NewRedisProgressIndex(rdb, "", log)

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []*types.ProgressRecord{
		{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x1", Status: types.StatusCompleted, Progress: 100, ViewCount: 2, CompletedCount: 1, LastUpdatedTime: now, LastCompletedTime: &now},
		{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x2", Status: types.StatusInProgress, Progress: 30, ViewCount: 1, LastUpdatedTime: now},
		{UserID: "u2", CourseID: "c1", BatchID: "b1", ContentID: "x1", LastUpdatedTime: now},
		nil,
	}
	if err := ix.IndexRecords(ctx, rows); err != nil {
		t.Fatalf("IndexRecords: %v", err)
	}

	if !mr.Exists("progress:u1:b1") || !mr.Exists("progress:u2:b1") {
		t.Fatalf("expected one hash per (user, batch): keys=%v", mr.Keys())
	}

	got, err := ix.Get(ctx, "u1", "b1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Get: want=2 got=%d", len(got))
	}
	if got["x1"].Status != 2 || got["x1"].Progress != 100 || got["x1"].LastCompletedTime == "" {
		t.Fatalf("x1: got=%+v", got["x1"])
	}
	if got["x2"].LastCompletedTime != "" {
		t.Fatalf("x2 completion time should be empty: got=%q", got["x2"].LastCompletedTime)
	}

	// Re-indexing overwrites the field in place.
	rows[1].Progress = 60
	if err := ix.IndexRecords(ctx, rows[1:2]); err != nil {
		t.Fatalf("IndexRecords again: %v", err)
	}
	got, err = ix.Get(ctx, "u1", "b1")
	if err != nil || got["x2"].Progress != 60 {
		t.Fatalf("reindex: err=%v got=%+v", err, got["x2"])
	}
}
