package services

import (
	"context"

	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type AssessmentSink interface {
	Publish(ctx context.Context, payload []byte) error
}

type AssessmentRelay struct {
	sink    AssessmentSink
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewAssessmentRelay(baseLog *logger.Logger, sink AssessmentSink, metrics *observability.Metrics) *AssessmentRelay {
	return &AssessmentRelay{sink: sink, metrics: metrics, log: baseLog.With("service", "AssessmentRelay")}
}

// Relay publishes each event's payload as received, one publish per event.
func (r *AssessmentRelay) Relay(ctx context.Context, items []assessmentItem, ledger *OutcomeLedger) {
	for _, it := range items {
		if r.sink == nil {
			ledger.Fail(it.Key, "assessment sink not configured")
			r.metrics.ObserveEvent("assessment", "failed")
			continue
		}
		if err := r.sink.Publish(ctx, it.Event.Payload); err != nil {
			r.metrics.IncPublishFailure("assessment")
			r.metrics.ObserveEvent("assessment", "failed")
			r.log.Warn("assessment publish failed", "batch_id", it.Event.BatchID, "key", it.Key, "error", err)
			ledger.Fail(it.Key, "assessment publish failed: "+err.Error())
			continue
		}
		r.metrics.ObserveEvent("assessment", "success")
		ledger.Succeed(it.Key)
	}
}
