package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/progress-reconciler/internal/data/repos/progress"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type ProgressRecordRepo = progress.ProgressRecordRepo
type EnrollmentPointerRepo = progress.EnrollmentPointerRepo
type CourseBatchRepo = progress.CourseBatchRepo

type StoreError = progress.StoreError

func NewProgressRecordRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRecordRepo {
	return progress.NewProgressRecordRepo(db, baseLog)
}
func NewEnrollmentPointerRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentPointerRepo {
	return progress.NewEnrollmentPointerRepo(db, baseLog)
}
func NewCourseBatchRepo(db *gorm.DB, baseLog *logger.Logger) CourseBatchRepo {
	return progress.NewCourseBatchRepo(db, baseLog)
}
