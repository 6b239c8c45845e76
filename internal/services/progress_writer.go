package services

import (
	"context"
	"time"

	"github.com/yungbote/progress-reconciler/internal/data/repos"
	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

// ProgressIndex is the secondary, query-side copy of progress records.
type ProgressIndex interface {
	IndexRecords(ctx context.Context, rows []*types.ProgressRecord) error
}

type ProgressWriter struct {
	records  repos.ProgressRecordRepo
	pointers repos.EnrollmentPointerRepo
	index    ProgressIndex
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewProgressWriter(baseLog *logger.Logger, records repos.ProgressRecordRepo, pointers repos.EnrollmentPointerRepo, index ProgressIndex, metrics *observability.Metrics) *ProgressWriter {
	return &ProgressWriter{
		records:  records,
		pointers: pointers,
		index:    index,
		metrics:  metrics,
		log:      baseLog.With("service", "ProgressWriter"),
	}
}

// Write persists rows for one batch: records first, then one pointer per
// user. The two writes are not atomic; a pointer failure leaves the records
// in place and the pointer stale until the next pass. The index is written
// last and its failure only leaves rows for the replay job.
func (w *ProgressWriter) Write(ctx context.Context, batch *types.CourseBatch, rows []*types.ProgressRecord) error {
	if len(rows) == 0 {
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := w.records.UpsertMany(dbc, rows); err != nil {
		return err
	}

	for _, userRows := range groupByUser(rows) {
		ptr := SelectPointer(userRows, time.Now().UTC())
		if ptr == nil {
			continue
		}
		if batch != nil && ptr.CourseID == "" {
			ptr.CourseID = batch.CourseID
		}
		if err := w.pointers.Upsert(dbc, ptr); err != nil {
			return err
		}
	}

	w.indexRows(ctx, rows)
	return nil
}

func (w *ProgressWriter) indexRows(ctx context.Context, rows []*types.ProgressRecord) {
	if w.index == nil {
		return
	}
	if err := w.index.IndexRecords(ctx, rows); err != nil {
		w.metrics.IncIndexFailure()
		w.log.Warn("progress index write failed; left for replay", "rows", len(rows), "error", err)
		return
	}
	if err := w.records.MarkIndexed(dbctx.Context{Ctx: ctx}, rows); err != nil {
		w.log.Warn("mark indexed failed", "rows", len(rows), "error", err)
	}
}

// SelectPointer picks the row with the latest lastAccessTime. A present time
// beats a missing one; ties keep the earlier row.
func SelectPointer(rows []*types.ProgressRecord, now time.Time) *types.EnrollmentPointer {
	var best *types.ProgressRecord
	for _, r := range rows {
		if r == nil {
			continue
		}
		if best == nil || accessedAfter(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	var at *time.Time
	if best.LastAccessTime != nil {
		t := *best.LastAccessTime
		at = &t
	}
	return &types.EnrollmentPointer{
		BatchID:               best.BatchID,
		UserID:                best.UserID,
		CourseID:              best.CourseID,
		LastReadContentID:     best.ContentID,
		LastReadContentStatus: best.Status,
		LastAccessTime:        at,
		UpdatedAt:             now,
	}
}

func accessedAfter(a, b *types.ProgressRecord) bool {
	switch {
	case a.LastAccessTime == nil:
		return false
	case b.LastAccessTime == nil:
		return true
	default:
		return a.LastAccessTime.After(*b.LastAccessTime)
	}
}

// groupByUser splits rows per user, keeping first-seen user order.
func groupByUser(rows []*types.ProgressRecord) [][]*types.ProgressRecord {
	idx := map[string]int{}
	var out [][]*types.ProgressRecord
	for _, r := range rows {
		if r == nil {
			continue
		}
		i, ok := idx[r.UserID]
		if !ok {
			i = len(out)
			idx[r.UserID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r)
	}
	return out
}
