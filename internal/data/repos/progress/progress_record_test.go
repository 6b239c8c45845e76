package progress

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/progress-reconciler/internal/data/repos/testutil"
	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
)

func TestProgressRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.From(ctx).WithTx(tx)
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	now := testutil.Now()
	r1 := &types.ProgressRecord{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x1", Status: types.StatusInProgress, Progress: 40, ViewCount: 1, LastUpdatedTime: now}
	r2 := &types.ProgressRecord{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x2", Status: types.StatusCompleted, Progress: 100, ViewCount: 1, CompletedCount: 1, LastUpdatedTime: now, ProgressDetails: datatypes.JSON(`{"page":3}`)}
	r3 := &types.ProgressRecord{UserID: "u2", CourseID: "c1", BatchID: "b1", ContentID: "x1", Status: types.StatusNotStarted, LastUpdatedTime: now}
	if err := repo.UpsertMany(dbc, []*types.ProgressRecord{r1, r2, r3, nil, {UserID: "u1"}}); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}

	rows, err := repo.GetByUserBatchContentIDs(dbc, "u1", "b1", []string{"x1", "x2", "missing"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByUserBatchContentIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByUserBatchContentIDs(dbc, "u1", "b1", nil); err != nil || len(rows) != 0 {
		t.Fatalf("GetByUserBatchContentIDs empty: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListByUserBatch(dbc, "u2", "b1"); err != nil || len(rows) != 1 {
		t.Fatalf("ListByUserBatch: err=%v len=%d", err, len(rows))
	}

	r1.Status = types.StatusCompleted
	r1.Progress = 100
	r1.ViewCount = 2
	if err := repo.UpsertMany(dbc, []*types.ProgressRecord{r1}); err != nil {
		t.Fatalf("UpsertMany overwrite: %v", err)
	}
	rows, err = repo.GetByUserBatchContentIDs(dbc, "u1", "b1", []string{"x1"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload x1: err=%v len=%d", err, len(rows))
	}
	if rows[0].Status != types.StatusCompleted || rows[0].Progress != 100 || rows[0].ViewCount != 2 {
		t.Fatalf("overwrite: want=(2,100,2) got=(%d,%d,%d)", rows[0].Status, rows[0].Progress, rows[0].ViewCount)
	}
}

func TestProgressRecordRepoPendingAndMarks(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	old := testutil.Now().Add(-time.Hour)
	r1 := &types.ProgressRecord{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x1", LastUpdatedTime: old}
	r2 := &types.ProgressRecord{UserID: "u1", CourseID: "c1", BatchID: "b1", ContentID: "x2", LastUpdatedTime: old}
	if err := repo.UpsertMany(dbc, []*types.ProgressRecord{r1, r2}); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}

	cutoff := testutil.Now().Add(-time.Minute)
	if rows, err := repo.ListPendingNotification(dbc, cutoff, 10); err != nil || len(rows) != 2 {
		t.Fatalf("ListPendingNotification: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListPendingNotification(dbc, old, 10); err != nil || len(rows) != 0 {
		t.Fatalf("ListPendingNotification before grace: err=%v len=%d", err, len(rows))
	}

	if err := repo.MarkNotified(dbc, []*types.ProgressRecord{r1}); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	rows, err := repo.ListPendingNotification(dbc, cutoff, 10)
	if err != nil || len(rows) != 1 || rows[0].ContentID != "x2" {
		t.Fatalf("after MarkNotified: err=%v rows=%v", err, rows)
	}
	if rows, err := repo.ListPendingIndex(dbc, cutoff, 10); err != nil || len(rows) != 2 {
		t.Fatalf("ListPendingIndex: err=%v len=%d", err, len(rows))
	}

	// A mark computed from a stale read must not land.
	stale := r2.Clone()
	r2.LastUpdatedTime = old.Add(time.Second)
	if err := repo.UpsertMany(dbc, []*types.ProgressRecord{r2}); err != nil {
		t.Fatalf("rewrite r2: %v", err)
	}
	if err := repo.MarkIndexed(dbc, []*types.ProgressRecord{stale}); err != nil {
		t.Fatalf("MarkIndexed stale: %v", err)
	}
	if rows, err := repo.ListPendingIndex(dbc, cutoff, 10); err != nil || len(rows) != 2 {
		t.Fatalf("stale mark applied: err=%v len=%d", err, len(rows))
	}

	// Rewriting a notified row makes it pending again.
	r1.LastUpdatedTime = old.Add(2 * time.Second)
	if err := repo.UpsertMany(dbc, []*types.ProgressRecord{r1}); err != nil {
		t.Fatalf("rewrite r1: %v", err)
	}
	if rows, err := repo.ListPendingNotification(dbc, cutoff, 10); err != nil || len(rows) != 2 {
		t.Fatalf("rewritten row not pending: err=%v len=%d", err, len(rows))
	}
}

func TestEnrollmentPointerRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewEnrollmentPointerRepo(db, testutil.Logger(t))

	if got, err := repo.Get(dbc, "b1", "u1"); err != nil || got != nil {
		t.Fatalf("Get missing: got=%v err=%v", got, err)
	}

	at := testutil.Now()
	ptr := &types.EnrollmentPointer{BatchID: "b1", UserID: "u1", CourseID: "c1", LastReadContentID: "x1", LastReadContentStatus: types.StatusInProgress, LastAccessTime: &at}
	if err := repo.Upsert(dbc, ptr); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	ptr2 := &types.EnrollmentPointer{BatchID: "b1", UserID: "u1", CourseID: "c1", LastReadContentID: "x2", LastReadContentStatus: types.StatusCompleted}
	if err := repo.Upsert(dbc, ptr2); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}

	got, err := repo.Get(dbc, "b1", "u1")
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.LastReadContentID != "x2" || got.LastReadContentStatus != types.StatusCompleted {
		t.Fatalf("pointer: want=(x2,2) got=(%s,%d)", got.LastReadContentID, got.LastReadContentStatus)
	}
	if got.LastAccessTime != nil {
		t.Fatalf("pointer access time should be overwritten: got=%v", got.LastAccessTime)
	}
}

func TestCourseBatchRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCourseBatchRepo(db, testutil.Logger(t))

	rows := []*types.CourseBatch{
		{BatchID: "b-ongoing", CourseID: "c1", Status: types.BatchOngoing},
		{BatchID: "b-upcoming", CourseID: "c1", Status: types.BatchUpcoming},
	}
	if err := repo.Upsert(dbctx.From(ctx), rows...); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	rows[1].Status = types.BatchCompleted
	if err := repo.Upsert(dbctx.From(ctx), rows[1]); err != nil {
		t.Fatalf("Upsert status: %v", err)
	}

	found, err := repo.LookupBatches(ctx, []string{"b-ongoing", "b-upcoming", "b-missing"})
	if err != nil {
		t.Fatalf("LookupBatches: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("LookupBatches: want=2 got=%d", len(found))
	}
	if _, ok := found["b-missing"]; ok {
		t.Fatalf("missing batch should be absent")
	}
	if !found["b-ongoing"].IsOngoing() {
		t.Fatalf("b-ongoing: want ongoing got=%v", found["b-ongoing"].Status)
	}
	if found["b-upcoming"].Status != types.BatchCompleted {
		t.Fatalf("b-upcoming: want=%v got=%v", types.BatchCompleted, found["b-upcoming"].Status)
	}
}
