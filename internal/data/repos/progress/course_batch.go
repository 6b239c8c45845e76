package progress

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type CourseBatchRepo interface {
	GetByIDs(dbc dbctx.Context, batchIDs []string) ([]*types.CourseBatch, error)
	Upsert(dbc dbctx.Context, rows ...*types.CourseBatch) error
	// LookupBatches is the batch directory view over the local table. Missing
	// ids are simply absent from the result.
	LookupBatches(ctx context.Context, batchIDs []string) (map[string]*types.CourseBatch, error)
}

type courseBatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseBatchRepo(db *gorm.DB, baseLog *logger.Logger) CourseBatchRepo {
	return &courseBatchRepo{db: db, log: baseLog.With("repo", "CourseBatchRepo")}
}

func (r *courseBatchRepo) GetByIDs(dbc dbctx.Context, batchIDs []string) ([]*types.CourseBatch, error) {
	var out []*types.CourseBatch
	if len(batchIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("batch_id IN ?", batchIDs).
		Find(&out).Error; err != nil {
		return nil, wrapStoreError("read course batches", err)
	}
	return out, nil
}

func (r *courseBatchRepo) Upsert(dbc dbctx.Context, rows ...*types.CourseBatch) error {
	now := time.Now().UTC()
	clean := make([]*types.CourseBatch, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.BatchID == "" {
			continue
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		clean = append(clean, row)
	}
	if len(clean) == 0 {
		return nil
	}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"course_id", "name", "status", "start_date", "end_date", "updated_at"}),
		}).
		Create(&clean).Error
	if err != nil {
		return wrapStoreError("write course batches", err)
	}
	return nil
}

func (r *courseBatchRepo) LookupBatches(ctx context.Context, batchIDs []string) (map[string]*types.CourseBatch, error) {
	rows, err := r.GetByIDs(dbctx.From(ctx), batchIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.CourseBatch, len(rows))
	for _, row := range rows {
		out[row.BatchID] = row
	}
	return out, nil
}
