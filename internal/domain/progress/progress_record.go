package progress

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressRecord is the stored consumption state of one content item for one
// learner inside one course batch.
type ProgressRecord struct {
	UserID            string         `gorm:"column:user_id;primaryKey;size:128;index:idx_progress_user_batch,priority:1" json:"userId"`
	CourseID          string         `gorm:"column:course_id;primaryKey;size:128" json:"courseId"`
	BatchID           string         `gorm:"column:batch_id;primaryKey;size:128;index:idx_progress_user_batch,priority:2" json:"batchId"`
	ContentID         string         `gorm:"column:content_id;primaryKey;size:128;index:idx_progress_user_batch,priority:3" json:"contentId"`
	Status            ContentStatus  `gorm:"column:status;not null;default:0" json:"status"`
	Progress          int            `gorm:"column:progress;not null;default:0" json:"progress"`
	ViewCount         int            `gorm:"column:view_count;not null;default:0" json:"viewCount"`
	CompletedCount    int            `gorm:"column:completed_count;not null;default:0" json:"completedCount"`
	LastAccessTime    *time.Time     `gorm:"column:last_access_time" json:"lastAccessTime,omitempty"`
	LastCompletedTime *time.Time     `gorm:"column:last_completed_time" json:"lastCompletedTime,omitempty"`
	LastUpdatedTime   time.Time      `gorm:"column:last_updated_time;not null;index" json:"lastUpdatedTime"`
	ProgressDetails   datatypes.JSON `gorm:"column:progress_details" json:"progressDetails,omitempty"`
	NotifiedAt        *time.Time     `gorm:"column:notified_at" json:"-"`
	IndexedAt         *time.Time     `gorm:"column:indexed_at" json:"-"`
}

func (ProgressRecord) TableName() string { return "content_progress" }

// RecordKey is the identity of a ProgressRecord.
type RecordKey struct {
	UserID    string
	CourseID  string
	BatchID   string
	ContentID string
}

func (r *ProgressRecord) Key() RecordKey {
	return RecordKey{UserID: r.UserID, CourseID: r.CourseID, BatchID: r.BatchID, ContentID: r.ContentID}
}

func (r *ProgressRecord) Clone() *ProgressRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.LastAccessTime = cloneTime(r.LastAccessTime)
	out.LastCompletedTime = cloneTime(r.LastCompletedTime)
	out.NotifiedAt = cloneTime(r.NotifiedAt)
	out.IndexedAt = cloneTime(r.IndexedAt)
	if r.ProgressDetails != nil {
		out.ProgressDetails = append(datatypes.JSON(nil), r.ProgressDetails...)
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
