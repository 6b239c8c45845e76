package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/progress-reconciler/internal/data/repos"
	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

const (
	NotificationEID       = "BE_JOB_REQUEST"
	ActionEnrolmentUpdate = "batch-enrolment-update"
	ActionBatchUpdate     = "course-batch-update"

	systemActorID   = "Course Batch Updater"
	systemActorType = "System"
	producerID      = "progress-reconciler"
	producerVersion = "1.0"
)

type NotificationSink interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type Notification struct {
	EID     string              `json:"eid"`
	Ets     int64               `json:"ets"`
	MID     string              `json:"mid"`
	Actor   NotificationActor   `json:"actor"`
	Context NotificationContext `json:"context"`
	Object  NotificationObject  `json:"object"`
	EData   NotificationData    `json:"edata"`
}

type NotificationActor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type NotificationContext struct {
	PData NotificationProducer `json:"pdata"`
}

type NotificationProducer struct {
	ID  string `json:"id"`
	Ver string `json:"ver"`
}

type NotificationObject struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type NotificationData struct {
	Action    string         `json:"action"`
	Iteration int            `json:"iteration"`
	BatchID   string         `json:"batchId"`
	UserID    string         `json:"userId,omitempty"`
	CourseID  string         `json:"courseId"`
	Contents  []ContentState `json:"contents,omitempty"`
}

type ContentState struct {
	ContentID string `json:"contentId"`
	Status    int    `json:"status"`
}

// ObjectID derives a stable id from the given parts.
func ObjectID(parts ...string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "_"))).String()
}

func newNotification(action string, object NotificationObject, now time.Time) Notification {
	ets := now.UnixMilli()
	return Notification{
		EID:     NotificationEID,
		Ets:     ets,
		MID:     fmt.Sprintf("LP.%d.%s", ets, uuid.NewString()),
		Actor:   NotificationActor{ID: systemActorID, Type: systemActorType},
		Context: NotificationContext{PData: NotificationProducer{ID: producerID, Ver: producerVersion}},
		Object:  object,
		EData:   NotificationData{Action: action, Iteration: 1},
	}
}

// BuildEnrolmentNotification describes the content states written for one
// (user, batch).
func BuildEnrolmentNotification(userID, batchID, courseID string, rows []*types.ProgressRecord, now time.Time) Notification {
	n := newNotification(ActionEnrolmentUpdate, NotificationObject{
		ID:   ObjectID(batchID, userID),
		Type: "CourseBatchEnrolment",
	}, now)
	n.EData.BatchID = batchID
	n.EData.UserID = userID
	n.EData.CourseID = courseID
	for _, r := range rows {
		if r == nil {
			continue
		}
		n.EData.Contents = append(n.EData.Contents, ContentState{ContentID: r.ContentID, Status: int(r.Status)})
	}
	return n
}

// BuildBatchNotification signals that completions changed in a batch.
func BuildBatchNotification(batchID, courseID string, now time.Time) Notification {
	n := newNotification(ActionBatchUpdate, NotificationObject{
		ID:   ObjectID(batchID, courseID),
		Type: "CourseBatch",
	}, now)
	n.EData.BatchID = batchID
	n.EData.CourseID = courseID
	return n
}

type ProgressNotifier struct {
	sink    NotificationSink
	topic   string
	records repos.ProgressRecordRepo
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewProgressNotifier(baseLog *logger.Logger, sink NotificationSink, topic string, records repos.ProgressRecordRepo, metrics *observability.Metrics) *ProgressNotifier {
	return &ProgressNotifier{
		sink:    sink,
		topic:   topic,
		records: records,
		metrics: metrics,
		log:     baseLog.With("service", "ProgressNotifier"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Notify publishes the enrolment update for one (user, batch) and, when
// completed is set, the batch update. Rows are marked notified once the
// enrolment update is accepted by the sink.
func (n *ProgressNotifier) Notify(ctx context.Context, userID, batchID, courseID string, rows []*types.ProgressRecord, completed bool) error {
	if n == nil || n.sink == nil {
		return nil
	}
	now := n.now()
	if err := n.publish(ctx, BuildEnrolmentNotification(userID, batchID, courseID, rows, now)); err != nil {
		n.metrics.IncPublishFailure("notification")
		n.log.Warn("enrolment notification publish failed", "batch_id", batchID, "user_id", userID, "error", err)
		return err
	}
	if completed {
		if err := n.publish(ctx, BuildBatchNotification(batchID, courseID, now)); err != nil {
			n.metrics.IncPublishFailure("notification")
			n.log.Warn("batch notification publish failed", "batch_id", batchID, "course_id", courseID, "error", err)
		}
	}
	if n.records != nil {
		if err := n.records.MarkNotified(dbctx.Context{Ctx: ctx}, rows); err != nil {
			n.log.Warn("mark notified failed", "batch_id", batchID, "rows", len(rows), "error", err)
		}
	}
	return nil
}

func (n *ProgressNotifier) publish(ctx context.Context, msg Notification) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.sink.Publish(ctx, n.topic, raw)
}
