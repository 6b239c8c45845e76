package services

import (
	"context"
	"errors"
	"testing"
	"time"

	types "github.com/yungbote/progress-reconciler/internal/domain"
)

func TestSelectPointerLatestAccess(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t1, t2, t3 := base, base.Add(2*time.Hour), base.Add(time.Hour)
	rows := []*types.ProgressRecord{
		{UserID: "u1", BatchID: "b1", CourseID: "course-1", ContentID: "c1", Status: types.StatusCompleted, LastAccessTime: &t1},
		{UserID: "u1", BatchID: "b1", CourseID: "course-1", ContentID: "c2", Status: types.StatusInProgress, LastAccessTime: &t2},
		{UserID: "u1", BatchID: "b1", CourseID: "course-1", ContentID: "c3", Status: types.StatusNotStarted, LastAccessTime: &t3},
	}
	ptr := SelectPointer(rows, base)
	if ptr == nil || ptr.LastReadContentID != "c2" || ptr.LastReadContentStatus != types.StatusInProgress {
		t.Fatalf("pointer: want c2/1 got=%+v", ptr)
	}

	rows[1].LastAccessTime = nil
	if ptr := SelectPointer(rows, base); ptr.LastReadContentID != "c3" {
		t.Fatalf("missing time should lose: got=%s", ptr.LastReadContentID)
	}
	if SelectPointer(nil, base) != nil {
		t.Fatalf("empty rows should yield nil")
	}
}

func TestProgressWriterOrderAndIndex(t *testing.T) {
	records := newFakeRecordRepo()
	pointers := newFakePointerRepo()
	index := &fakeIndex{}
	w := NewProgressWriter(testLogger(), records, pointers, index, nil)

	now := time.Now().UTC()
	rows := []*types.ProgressRecord{
		{UserID: "u1", BatchID: "b1", CourseID: "course-1", ContentID: "c1", LastAccessTime: &now, LastUpdatedTime: now},
		{UserID: "u2", BatchID: "b1", CourseID: "course-1", ContentID: "c1", LastAccessTime: &now, LastUpdatedTime: now},
	}
	batch := &types.CourseBatch{BatchID: "b1", CourseID: "course-1"}
	if err := w.Write(context.Background(), batch, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if records.count() != 2 || pointers.calls != 2 || index.calls != 1 {
		t.Fatalf("calls: records=%d pointers=%d index=%d", records.count(), pointers.calls, index.calls)
	}
	if got := records.get("u1", "course-1", "b1", "c1"); got.IndexedAt == nil {
		t.Fatalf("indexed row should be marked")
	}

	// Record write failure stops before the pointer.
	records.failUpsert["b2"] = errors.New("write content progress: unavailable: down")
	rows2 := []*types.ProgressRecord{{UserID: "u1", BatchID: "b2", CourseID: "course-1", ContentID: "c9", LastUpdatedTime: now}}
	if err := w.Write(context.Background(), batch, rows2); err == nil {
		t.Fatalf("Write: want error")
	}
	if pointers.calls != 2 {
		t.Fatalf("pointer written after failed record write: calls=%d", pointers.calls)
	}

	// Index failure is not a write failure.
	index.fail = errors.New("index down")
	rows3 := []*types.ProgressRecord{{UserID: "u3", BatchID: "b1", CourseID: "course-1", ContentID: "c1", LastUpdatedTime: now}}
	if err := w.Write(context.Background(), batch, rows3); err != nil {
		t.Fatalf("Write with index failure: %v", err)
	}
	if got := records.get("u3", "course-1", "b1", "c1"); got.IndexedAt != nil {
		t.Fatalf("unindexed row should stay unmarked")
	}
}
