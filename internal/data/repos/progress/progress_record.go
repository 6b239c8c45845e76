package progress

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

const upsertChunkSize = 200

type ProgressRecordRepo interface {
	GetByUserBatchContentIDs(dbc dbctx.Context, userID, batchID string, contentIDs []string) ([]*types.ProgressRecord, error)
	ListByUserBatch(dbc dbctx.Context, userID, batchID string) ([]*types.ProgressRecord, error)
	UpsertMany(dbc dbctx.Context, rows []*types.ProgressRecord) error
	ListPendingNotification(dbc dbctx.Context, updatedBefore time.Time, limit int) ([]*types.ProgressRecord, error)
	ListPendingIndex(dbc dbctx.Context, updatedBefore time.Time, limit int) ([]*types.ProgressRecord, error)
	MarkNotified(dbc dbctx.Context, rows []*types.ProgressRecord) error
	MarkIndexed(dbc dbctx.Context, rows []*types.ProgressRecord) error
}

type progressRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRecordRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRecordRepo {
	return &progressRecordRepo{db: db, log: baseLog.With("repo", "ProgressRecordRepo")}
}

func (r *progressRecordRepo) GetByUserBatchContentIDs(dbc dbctx.Context, userID, batchID string, contentIDs []string) ([]*types.ProgressRecord, error) {
	var out []*types.ProgressRecord
	if userID == "" || batchID == "" || len(contentIDs) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("user_id = ? AND batch_id = ? AND content_id IN ?", userID, batchID, contentIDs).
		Find(&out).Error
	if err != nil {
		return nil, wrapStoreError("read content progress", err)
	}
	return out, nil
}

func (r *progressRecordRepo) ListByUserBatch(dbc dbctx.Context, userID, batchID string) ([]*types.ProgressRecord, error) {
	var out []*types.ProgressRecord
	if userID == "" || batchID == "" {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("content_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrapStoreError("list content progress", err)
	}
	return out, nil
}

// UpsertMany writes rows in one statement per chunk. Replay bookkeeping
// columns are left untouched on conflict so a rewritten row reads as pending.
func (r *progressRecordRepo) UpsertMany(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	clean := make([]*types.ProgressRecord, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.UserID == "" || row.BatchID == "" || row.ContentID == "" {
			continue
		}
		clean = append(clean, row)
	}
	if len(clean) == 0 {
		return nil
	}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "batch_id"}, {Name: "content_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"progress",
				"view_count",
				"completed_count",
				"last_access_time",
				"last_completed_time",
				"last_updated_time",
				"progress_details",
			}),
		}).
		CreateInBatches(clean, upsertChunkSize).Error
	if err != nil {
		return wrapStoreError("write content progress", err)
	}
	return nil
}

func (r *progressRecordRepo) ListPendingNotification(dbc dbctx.Context, updatedBefore time.Time, limit int) ([]*types.ProgressRecord, error) {
	return r.listPending(dbc, "notified_at", updatedBefore, limit)
}

func (r *progressRecordRepo) ListPendingIndex(dbc dbctx.Context, updatedBefore time.Time, limit int) ([]*types.ProgressRecord, error) {
	return r.listPending(dbc, "indexed_at", updatedBefore, limit)
}

func (r *progressRecordRepo) listPending(dbc dbctx.Context, column string, updatedBefore time.Time, limit int) ([]*types.ProgressRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	if limit > 5000 {
		limit = 5000
	}
	var out []*types.ProgressRecord
	err := dbc.DB(r.db).
		Where("last_updated_time < ?", updatedBefore).
		Where(column + " IS NULL OR " + column + " < last_updated_time").
		Order("last_updated_time ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, wrapStoreError("list pending "+column, err)
	}
	return out, nil
}

func (r *progressRecordRepo) MarkNotified(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	return r.mark(dbc, "notified_at", rows)
}

func (r *progressRecordRepo) MarkIndexed(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	return r.mark(dbc, "indexed_at", rows)
}

// mark stamps column with the row's own lastUpdatedTime, and only if the row
// has not been rewritten since it was read.
func (r *progressRecordRepo) mark(dbc dbctx.Context, column string, rows []*types.ProgressRecord) error {
	if len(rows) == 0 {
		return nil
	}
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if row == nil {
				continue
			}
			if err := tx.Model(&types.ProgressRecord{}).
				Where("user_id = ? AND course_id = ? AND batch_id = ? AND content_id = ? AND last_updated_time = ?",
					row.UserID, row.CourseID, row.BatchID, row.ContentID, row.LastUpdatedTime).
				Update(column, row.LastUpdatedTime).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapStoreError("mark "+column, err)
	}
	return nil
}
