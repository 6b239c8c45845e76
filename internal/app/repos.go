package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/progress-reconciler/internal/data/repos"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type Repos struct {
	ProgressRecord    repos.ProgressRecordRepo
	EnrollmentPointer repos.EnrollmentPointerRepo
	CourseBatch       repos.CourseBatchRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ProgressRecord:    repos.NewProgressRecordRepo(db, log),
		EnrollmentPointer: repos.NewEnrollmentPointerRepo(db, log),
		CourseBatch:       repos.NewCourseBatchRepo(db, log),
	}
}
