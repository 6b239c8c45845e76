package progress

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is either a ContentEvent or an AssessmentEvent. The kind is fixed
// when a request is decoded and never re-inspected downstream.
type Event interface {
	EventBatchID() string
	isEvent()
}

// ContentEvent is one content-consumption update as submitted by a caller.
type ContentEvent struct {
	UserID            string          `json:"userId" validate:"required,max=128"`
	ContentID         string          `json:"contentId" validate:"required,max=128"`
	CourseID          string          `json:"courseId,omitempty" validate:"max=128"`
	BatchID           string          `json:"batchId" validate:"required,max=128"`
	Status            ContentStatus   `json:"status" validate:"min=0,max=2"`
	Progress          *int            `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	LastAccessTime    string          `json:"lastAccessTime,omitempty"`
	LastCompletedTime string          `json:"lastCompletedTime,omitempty"`
	ProgressDetails   json.RawMessage `json:"progressDetails,omitempty"`
}

func (e ContentEvent) EventBatchID() string { return e.BatchID }
func (ContentEvent) isEvent()               {}

// AssessmentEvent carries an opaque assessment payload. Only the batch id is
// read out of it; the payload is relayed byte for byte.
type AssessmentEvent struct {
	BatchID string
	Payload json.RawMessage
}

func (e AssessmentEvent) EventBatchID() string { return e.BatchID }
func (AssessmentEvent) isEvent()               {}

func (e AssessmentEvent) MarshalJSON() ([]byte, error) {
	if len(e.Payload) == 0 {
		return []byte("null"), nil
	}
	return e.Payload, nil
}

func (e *AssessmentEvent) UnmarshalJSON(raw []byte) error {
	out, err := DecodeAssessmentEvent(raw)
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// DecodeAssessmentEvent keeps raw verbatim and extracts its batchId.
func DecodeAssessmentEvent(raw []byte) (AssessmentEvent, error) {
	var head struct {
		BatchID string `json:"batchId"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return AssessmentEvent{}, fmt.Errorf("%w: assessment event: %v", ErrInvalidEvent, err)
	}
	return AssessmentEvent{
		BatchID: strings.TrimSpace(head.BatchID),
		Payload: append(json.RawMessage(nil), raw...),
	}, nil
}
