package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/domain/progress"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

// BatchDirectory resolves batch ids to their lifecycle state. Unknown ids are
// absent from the result; that is not an error.
type BatchDirectory interface {
	LookupBatches(ctx context.Context, batchIDs []string) (map[string]*types.CourseBatch, error)
}

type GateClass int

const (
	GateUnknown GateClass = iota
	GateNotOngoing
	GateProcessable
)

func (c GateClass) String() string {
	switch c {
	case GateNotOngoing:
		return "not_ongoing"
	case GateProcessable:
		return "processable"
	default:
		return "unknown"
	}
}

type contentItem struct {
	Key   string
	Index int
	Event types.ContentEvent
}

type assessmentItem struct {
	Key   string
	Event types.AssessmentEvent
}

// GatedBatch is every event of one request that names the same batch id.
type GatedBatch struct {
	BatchID     string
	Batch       *types.CourseBatch
	Class       GateClass
	Reason      string
	Contents    []contentItem
	Assessments []assessmentItem
}

func (b *GatedBatch) size() int { return len(b.Contents) + len(b.Assessments) }

type ProgressGate struct {
	dir      BatchDirectory
	validate *validator.Validate
	log      *logger.Logger
}

func NewProgressGate(dir BatchDirectory, baseLog *logger.Logger) *ProgressGate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ProgressGate{
		dir:      dir,
		validate: v,
		log:      baseLog.With("service", "ProgressGate"),
	}
}

// Partition groups events by batch id in first-seen order. Ids are trimmed on
// the event itself so reads and writes use the same key the gate resolved.
// Events without a batch id cannot be gated and are failed in the ledger
// directly.
func (g *ProgressGate) Partition(events []types.Event, ledger *OutcomeLedger) []*GatedBatch {
	byID := map[string]*GatedBatch{}
	var order []*GatedBatch
	assessmentN := 0
	for i, ev := range events {
		var key string
		switch e := ev.(type) {
		case types.ContentEvent:
			key = contentKey(e, i)
		case types.AssessmentEvent:
			key = assessmentKey(e.BatchID, assessmentN)
			assessmentN++
		default:
			continue
		}
		batchID := strings.TrimSpace(ev.EventBatchID())
		if batchID == "" {
			ledger.Fail(key, fmt.Sprintf("%v: batchId is required", progress.ErrInvalidEvent))
			continue
		}
		b, ok := byID[batchID]
		if !ok {
			b = &GatedBatch{BatchID: batchID}
			byID[batchID] = b
			order = append(order, b)
		}
		switch e := ev.(type) {
		case types.ContentEvent:
			e.BatchID = batchID
			e.UserID = strings.TrimSpace(e.UserID)
			e.ContentID = strings.TrimSpace(e.ContentID)
			b.Contents = append(b.Contents, contentItem{Key: key, Index: i, Event: e})
		case types.AssessmentEvent:
			e.BatchID = batchID
			b.Assessments = append(b.Assessments, assessmentItem{Key: key, Event: e})
		}
	}
	return order
}

// Classify resolves all batches in one directory lookup. A lookup failure
// leaves every batch in it Unknown with the lookup error as its reason.
func (g *ProgressGate) Classify(ctx context.Context, batches []*GatedBatch) error {
	if len(batches) == 0 {
		return nil
	}
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.BatchID)
	}

	var found map[string]*types.CourseBatch
	var lookupErr error
	if g.dir == nil {
		lookupErr = errors.New("batch directory not configured")
	} else {
		found, lookupErr = g.dir.LookupBatches(ctx, ids)
	}
	if lookupErr != nil {
		g.log.Warn("batch lookup failed; treating batches as unknown", "batch_count", len(ids), "error", lookupErr)
	}

	for _, b := range batches {
		row := found[b.BatchID]
		switch {
		case lookupErr != nil:
			b.Class = GateUnknown
			b.Reason = ReasonBatchLookupFailed + ": " + lookupErr.Error()
		case row == nil:
			b.Class = GateUnknown
			b.Reason = ReasonBatchNotFound
		case !row.IsOngoing():
			b.Batch = row
			b.Class = GateNotOngoing
			b.Reason = ReasonBatchNotOngoing
		default:
			b.Batch = row
			b.Class = GateProcessable
		}
	}
	return lookupErr
}

// ValidateContent checks one event against its (processable) batch and fills
// in the batch's course when the event leaves it empty.
func (g *ProgressGate) ValidateContent(batch *types.CourseBatch, ev *types.ContentEvent) error {
	if err := g.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", progress.ErrInvalidEvent, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", progress.ErrInvalidEvent, err)
	}
	if batch == nil {
		return nil
	}
	courseID := strings.TrimSpace(ev.CourseID)
	switch {
	case courseID == "":
		ev.CourseID = batch.CourseID
	case batch.CourseID != "" && courseID != batch.CourseID:
		return progress.ErrCourseMismatch
	}
	return nil
}

func contentKey(e types.ContentEvent, idx int) string {
	if id := strings.TrimSpace(e.ContentID); id != "" {
		return id
	}
	return fmt.Sprintf("event[%d]", idx)
}

func assessmentKey(batchID string, n int) string {
	return fmt.Sprintf("assessment:%s:%d", strings.TrimSpace(batchID), n)
}
