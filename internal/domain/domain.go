package domain

import "github.com/yungbote/progress-reconciler/internal/domain/progress"

type (
	ContentStatus     = progress.ContentStatus
	BatchStatus       = progress.BatchStatus
	ProgressRecord    = progress.ProgressRecord
	RecordKey         = progress.RecordKey
	EnrollmentPointer = progress.EnrollmentPointer
	CourseBatch       = progress.CourseBatch
	Event             = progress.Event
	ContentEvent      = progress.ContentEvent
	AssessmentEvent   = progress.AssessmentEvent
)

const (
	StatusNotStarted = progress.StatusNotStarted
	StatusInProgress = progress.StatusInProgress
	StatusCompleted  = progress.StatusCompleted

	BatchUpcoming  = progress.BatchUpcoming
	BatchOngoing   = progress.BatchOngoing
	BatchCompleted = progress.BatchCompleted
)

// Models lists every table this service migrates.
func Models() []any {
	return []any{
		&progress.CourseBatch{},
		&progress.ProgressRecord{},
		&progress.EnrollmentPointer{},
	}
}
