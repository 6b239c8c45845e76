package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/progress-reconciler/internal/data/repos"
	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

var (
	ErrTooManyEvents   = errors.New("too many events")
	ErrInvalidReadArgs = errors.New("userId and batchId are required")
)

type UpdateRequest struct {
	UserID           string
	ContentEvents    []types.ContentEvent
	AssessmentEvents []types.AssessmentEvent
}

type ReadRequest struct {
	UserID     string
	BatchID    string
	CourseID   string
	ContentIDs []string
}

type ProgressService interface {
	UpdateContentState(ctx context.Context, req UpdateRequest) (*OutcomeLedger, error)
	ReadContentState(ctx context.Context, req ReadRequest) ([]*types.ProgressRecord, error)
}

type ProgressConfig struct {
	BatchConcurrency       int
	MaxEvents              int
	CountRepeatCompletions bool
}

type progressService struct {
	log      *logger.Logger
	cfg      ProgressConfig
	gate     *ProgressGate
	records  repos.ProgressRecordRepo
	writer   *ProgressWriter
	notifier *ProgressNotifier
	relay    *AssessmentRelay
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewProgressService(
	baseLog *logger.Logger,
	cfg ProgressConfig,
	gate *ProgressGate,
	records repos.ProgressRecordRepo,
	writer *ProgressWriter,
	notifier *ProgressNotifier,
	relay *AssessmentRelay,
	metrics *observability.Metrics,
) ProgressService {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	return &progressService{
		log:      baseLog.With("service", "ProgressService"),
		cfg:      cfg,
		gate:     gate,
		records:  records,
		writer:   writer,
		notifier: notifier,
		relay:    relay,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *progressService) UpdateContentState(ctx context.Context, req UpdateRequest) (*OutcomeLedger, error) {
	total := len(req.ContentEvents) + len(req.AssessmentEvents)
	if s.cfg.MaxEvents > 0 && total > s.cfg.MaxEvents {
		return nil, fmt.Errorf("%w: %d exceeds limit %d", ErrTooManyEvents, total, s.cfg.MaxEvents)
	}

	ctx, span := observability.Tracer().Start(ctx, "progress.update")
	defer span.End()
	span.SetAttributes(
		attribute.Int("progress.content_events", len(req.ContentEvents)),
		attribute.Int("progress.assessment_events", len(req.AssessmentEvents)),
	)

	events := make([]types.Event, 0, total)
	for _, ev := range req.ContentEvents {
		if strings.TrimSpace(ev.UserID) == "" {
			ev.UserID = req.UserID
		}
		events = append(events, ev)
	}
	for _, ev := range req.AssessmentEvents {
		events = append(events, ev)
	}

	ledger := NewOutcomeLedger()
	batches := s.gate.Partition(events, ledger)
	_ = s.gate.Classify(ctx, batches)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.BatchConcurrency)
	for _, b := range batches {
		g.Go(func() error {
			s.processBatch(ctx, b, ledger)
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("progress.batches", len(batches)))
	if ledger.AllFailed() {
		span.SetStatus(codes.Error, "all units failed")
	}
	return ledger, nil
}

// processBatch runs one batch to a terminal state. Nothing it does may fail
// another batch, so panics are converted into a batch failure.
func (s *progressService) processBatch(ctx context.Context, b *GatedBatch, ledger *OutcomeLedger) {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "progress.batch")
	span.SetAttributes(
		attribute.String("progress.batch_id", b.BatchID),
		attribute.String("progress.gate", b.Class.String()),
		attribute.Int("progress.events", b.size()),
	)
	state := "written"
	defer func() {
		if r := recover(); r != nil {
			state = "panicked"
			s.log.Error("batch processing panicked", "batch_id", b.BatchID, "panic", r)
			s.failBatch(b, ledger, fmt.Sprintf("internal error: %v", r))
		}
		s.metrics.ObserveBatch(state, time.Since(start))
		span.End()
	}()

	if b.Class != GateProcessable {
		state = "rejected_at_gate"
		s.failBatch(b, ledger, b.Reason)
		span.SetStatus(codes.Error, b.Reason)
		return
	}

	if len(b.Assessments) > 0 {
		s.relay.Relay(ctx, b.Assessments, ledger)
	}
	if len(b.Contents) == 0 {
		state = "relayed"
		return
	}

	valid := make([]contentItem, 0, len(b.Contents))
	for _, it := range b.Contents {
		ev := it.Event
		if err := s.gate.ValidateContent(b.Batch, &ev); err != nil {
			s.metrics.ObserveEvent("content", "invalid")
			ledger.Fail(it.Key, err.Error())
			continue
		}
		valid = append(valid, contentItem{Key: it.Key, Index: it.Index, Event: ev})
	}
	if len(valid) == 0 {
		state = "merge_failed"
		return
	}

	rows, merged, completed, err := s.mergeBatch(ctx, b, valid, ledger)
	if err != nil {
		state = "merge_failed"
		span.RecordError(err)
		s.log.Warn("progress read failed", "batch_id", b.BatchID, "error", err)
		s.failContents(valid, ledger, err.Error())
		return
	}
	if len(rows) == 0 {
		state = "merge_failed"
		return
	}

	if err := s.writer.Write(ctx, b.Batch, rows); err != nil {
		state = "write_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		s.log.Error("progress write failed", "batch_id", b.BatchID, "rows", len(rows), "error", err)
		ledger.Fail(b.BatchID, err.Error())
		s.failContents(merged, ledger, err.Error())
		return
	}
	for _, it := range merged {
		s.metrics.ObserveEvent("content", "success")
		ledger.Succeed(it.Key)
	}

	for _, userRows := range groupByUser(rows) {
		userID := userRows[0].UserID
		_ = s.notifier.Notify(ctx, userID, b.BatchID, b.Batch.CourseID, userRows, completed[userID])
	}
}

// mergeBatch reads existing state once per user and folds events in request
// order, so repeated events for one content chain on each other. It returns
// the rows to write, the items that merged, and which users completed a
// content in this pass.
func (s *progressService) mergeBatch(ctx context.Context, b *GatedBatch, items []contentItem, ledger *OutcomeLedger) ([]*types.ProgressRecord, []contentItem, map[string]bool, error) {
	type userGroup struct {
		userID string
		items  []contentItem
	}
	var groups []*userGroup
	byUser := map[string]*userGroup{}
	for _, it := range items {
		g, ok := byUser[it.Event.UserID]
		if !ok {
			g = &userGroup{userID: it.Event.UserID}
			byUser[it.Event.UserID] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, it)
	}

	dbc := dbctx.Context{Ctx: ctx}
	now := s.now()
	opts := MergeOptions{CountRepeatCompletions: s.cfg.CountRepeatCompletions}

	var (
		rows      []*types.ProgressRecord
		merged    []contentItem
		completed = map[string]bool{}
	)
	for _, g := range groups {
		contentIDs := make([]string, 0, len(g.items))
		seen := map[string]bool{}
		for _, it := range g.items {
			if !seen[it.Event.ContentID] {
				seen[it.Event.ContentID] = true
				contentIDs = append(contentIDs, it.Event.ContentID)
			}
		}
		existing, err := s.records.GetByUserBatchContentIDs(dbc, g.userID, b.BatchID, contentIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read failed: %w", err)
		}
		current := map[string]*types.ProgressRecord{}
		for _, r := range existing {
			if r.CourseID == b.Batch.CourseID {
				current[r.ContentID] = r
			}
		}

		var order []string
		out := map[string]*types.ProgressRecord{}
		for _, it := range g.items {
			prev := out[it.Event.ContentID]
			if prev == nil {
				prev = current[it.Event.ContentID]
			}
			rec, err := MergeProgress(prev, it.Event, now, opts)
			if err != nil {
				s.metrics.ObserveEvent("content", "invalid")
				reason := err.Error()
				if out[it.Event.ContentID] != nil {
					reason = fmt.Sprintf("event[%d]: %v (earlier events for this content were applied)", it.Index, err)
				}
				ledger.Fail(it.Key, reason)
				continue
			}
			if rec.Status.IsCompleted() && (prev == nil || !prev.Status.IsCompleted()) {
				completed[g.userID] = true
			}
			if _, ok := out[it.Event.ContentID]; !ok {
				order = append(order, it.Event.ContentID)
			}
			out[it.Event.ContentID] = rec
			merged = append(merged, it)
		}
		for _, cid := range order {
			rows = append(rows, out[cid])
		}
	}
	return rows, merged, completed, nil
}

func (s *progressService) failBatch(b *GatedBatch, ledger *OutcomeLedger, reason string) {
	ledger.Fail(b.BatchID, reason)
	for _, it := range b.Contents {
		s.metrics.ObserveEvent("content", "rejected")
		ledger.Fail(it.Key, reason)
	}
	for _, it := range b.Assessments {
		s.metrics.ObserveEvent("assessment", "rejected")
		ledger.Fail(it.Key, reason)
	}
}

func (s *progressService) failContents(items []contentItem, ledger *OutcomeLedger, reason string) {
	for _, it := range items {
		s.metrics.ObserveEvent("content", "failed")
		ledger.Fail(it.Key, reason)
	}
}

func (s *progressService) ReadContentState(ctx context.Context, req ReadRequest) ([]*types.ProgressRecord, error) {
	userID := strings.TrimSpace(req.UserID)
	batchID := strings.TrimSpace(req.BatchID)
	if userID == "" || batchID == "" {
		return nil, ErrInvalidReadArgs
	}
	dbc := dbctx.Context{Ctx: ctx}

	var (
		rows []*types.ProgressRecord
		err  error
	)
	if len(req.ContentIDs) == 0 {
		rows, err = s.records.ListByUserBatch(dbc, userID, batchID)
	} else {
		rows, err = s.records.GetByUserBatchContentIDs(dbc, userID, batchID, req.ContentIDs)
	}
	if err != nil {
		return nil, err
	}
	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		return rows, nil
	}
	out := rows[:0]
	for _, r := range rows {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}
