package progress

import (
	"fmt"
	"strings"
)

// ContentStatus is the ordinal consumption state of one piece of content.
// Higher values never give way to lower ones once recorded.
type ContentStatus int

const (
	StatusNotStarted ContentStatus = 0
	StatusInProgress ContentStatus = 1
	StatusCompleted  ContentStatus = 2
)

func (s ContentStatus) Valid() bool {
	return s >= StatusNotStarted && s <= StatusCompleted
}

func (s ContentStatus) IsCompleted() bool { return s >= StatusCompleted }

func (s ContentStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func ParseContentStatus(v string) (ContentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "not_started":
		return StatusNotStarted, nil
	case "1", "in_progress":
		return StatusInProgress, nil
	case "2", "completed":
		return StatusCompleted, nil
	default:
		return 0, fmt.Errorf("unknown content status %q", v)
	}
}

// BatchStatus is the lifecycle state of a course batch, owned by the batch
// lifecycle service.
type BatchStatus int

const (
	BatchUpcoming  BatchStatus = 0
	BatchOngoing   BatchStatus = 1
	BatchCompleted BatchStatus = 2
)

func (s BatchStatus) String() string {
	switch s {
	case BatchUpcoming:
		return "upcoming"
	case BatchOngoing:
		return "ongoing"
	case BatchCompleted:
		return "completed"
	default:
		return fmt.Sprintf("batch_status(%d)", int(s))
	}
}
