package progress

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type EnrollmentPointerRepo interface {
	Get(dbc dbctx.Context, batchID, userID string) (*types.EnrollmentPointer, error)
	Upsert(dbc dbctx.Context, ptr *types.EnrollmentPointer) error
}

type enrollmentPointerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentPointerRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentPointerRepo {
	return &enrollmentPointerRepo{db: db, log: baseLog.With("repo", "EnrollmentPointerRepo")}
}

func (r *enrollmentPointerRepo) Get(dbc dbctx.Context, batchID, userID string) (*types.EnrollmentPointer, error) {
	if batchID == "" || userID == "" {
		return nil, nil
	}
	var row types.EnrollmentPointer
	err := dbc.DB(r.db).
		Where("batch_id = ? AND user_id = ?", batchID, userID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, wrapStoreError("read enrollment pointer", err)
	}
	if row.BatchID == "" {
		return nil, nil
	}
	return &row, nil
}

// Upsert overwrites the pointer; it is never merged with the stored value.
func (r *enrollmentPointerRepo) Upsert(dbc dbctx.Context, ptr *types.EnrollmentPointer) error {
	if ptr == nil || ptr.BatchID == "" || ptr.UserID == "" {
		return nil
	}
	if ptr.UpdatedAt.IsZero() {
		ptr.UpdatedAt = time.Now().UTC()
	}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "batch_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"course_id",
				"last_read_content_id",
				"last_read_content_status",
				"last_access_time",
				"updated_at",
			}),
		}).
		Create(ptr).Error
	if err != nil {
		return wrapStoreError("write enrollment pointer", err)
	}
	return nil
}
