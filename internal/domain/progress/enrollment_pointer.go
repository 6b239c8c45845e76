package progress

import "time"

// EnrollmentPointer records the content a learner touched most recently in a
// batch. It is overwritten on every reconciliation pass.
type EnrollmentPointer struct {
	BatchID               string        `gorm:"column:batch_id;primaryKey;size:128" json:"batchId"`
	UserID                string        `gorm:"column:user_id;primaryKey;size:128" json:"userId"`
	CourseID              string        `gorm:"column:course_id;size:128" json:"courseId"`
	LastReadContentID     string        `gorm:"column:last_read_content_id;size:128" json:"lastReadContentId"`
	LastReadContentStatus ContentStatus `gorm:"column:last_read_content_status;not null;default:0" json:"lastReadContentStatus"`
	LastAccessTime        *time.Time    `gorm:"column:last_access_time" json:"lastAccessTime,omitempty"`
	UpdatedAt             time.Time     `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (EnrollmentPointer) TableName() string { return "enrollment_pointers" }
