package progress

import "time"

// CourseBatch is the lifecycle view of a batch as seen by this service. Rows
// are maintained by the batch lifecycle service; this service only reads them.
type CourseBatch struct {
	BatchID   string      `gorm:"column:batch_id;primaryKey;size:128" json:"batchId"`
	CourseID  string      `gorm:"column:course_id;size:128;not null;index" json:"courseId"`
	Name      string      `gorm:"column:name" json:"name,omitempty"`
	Status    BatchStatus `gorm:"column:status;not null;default:0" json:"status"`
	StartDate *time.Time  `gorm:"column:start_date" json:"startDate,omitempty"`
	EndDate   *time.Time  `gorm:"column:end_date" json:"endDate,omitempty"`
	CreatedAt time.Time   `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time   `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (CourseBatch) TableName() string { return "course_batches" }

func (b *CourseBatch) IsOngoing() bool { return b != nil && b.Status == BatchOngoing }
