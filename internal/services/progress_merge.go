package services

import (
	"time"

	"gorm.io/datatypes"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/domain/progress"
)

type MergeOptions struct {
	// CountRepeatCompletions increments completedCount on every completed
	// event, including ones against a record that is already Completed.
	CountRepeatCompletions bool
}

// MergeProgress folds one event into the existing record, or creates the
// record when existing is nil. existing is not modified. Status and progress
// never move backwards.
func MergeProgress(existing *types.ProgressRecord, ev types.ContentEvent, now time.Time, opts MergeOptions) (*types.ProgressRecord, error) {
	accessed, err := progress.ParseEventTime(ev.LastAccessTime)
	if err != nil {
		return nil, err
	}
	completed, err := progress.ParseEventTime(ev.LastCompletedTime)
	if err != nil {
		return nil, err
	}
	incomingProgress := 0
	if ev.Progress != nil {
		incomingProgress = clampPercent(*ev.Progress)
	}

	if existing == nil {
		out := &types.ProgressRecord{
			UserID:         ev.UserID,
			CourseID:       ev.CourseID,
			BatchID:        ev.BatchID,
			ContentID:      ev.ContentID,
			ViewCount:      1,
			LastAccessTime: progress.LaterOf(nil, accessed, now),
		}
		if ev.Status.IsCompleted() {
			out.CompletedCount = 1
			out.Progress = 100
			out.LastCompletedTime = progress.LaterOf(nil, completed, now)
			out.Status = types.StatusCompleted
		} else {
			out.Progress = incomingProgress
			out.Status = ev.Status
		}
		out.ProgressDetails = details(nil, ev)
		out.LastUpdatedTime = now
		return out, nil
	}

	out := existing.Clone()
	out.ViewCount = existing.ViewCount + 1
	out.LastAccessTime = progress.LaterOf(existing.LastAccessTime, accessed, now)
	if incomingProgress > out.Progress {
		out.Progress = incomingProgress
	}
	if ev.Status >= existing.Status {
		if ev.Status.IsCompleted() {
			if opts.CountRepeatCompletions || !existing.Status.IsCompleted() {
				out.CompletedCount = existing.CompletedCount + 1
			}
			out.Progress = 100
			out.LastCompletedTime = progress.LaterOf(existing.LastCompletedTime, completed, now)
			out.Status = types.StatusCompleted
		} else {
			out.Status = ev.Status
		}
	} else {
		out.Status = existing.Status
	}
	out.ProgressDetails = details(existing.ProgressDetails, ev)
	out.LastUpdatedTime = now
	return out, nil
}

func details(prev datatypes.JSON, ev types.ContentEvent) datatypes.JSON {
	if len(ev.ProgressDetails) > 0 && string(ev.ProgressDetails) != "null" {
		return append(datatypes.JSON(nil), ev.ProgressDetails...)
	}
	return prev
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
