package services

import (
	"context"
	"time"

	"github.com/yungbote/progress-reconciler/internal/data/repos"
	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type ReplayConfig struct {
	// Grace keeps the replay away from rows a live request may still be
	// notifying.
	Grace time.Duration
	Limit int
}

type ReplayResult struct {
	Indexed  int `json:"indexed"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

// NotificationReplayer re-sends index writes and notifications for rows whose
// last write was never acknowledged by those targets.
type NotificationReplayer struct {
	cfg      ReplayConfig
	records  repos.ProgressRecordRepo
	index    ProgressIndex
	notifier *ProgressNotifier
	metrics  *observability.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewNotificationReplayer(baseLog *logger.Logger, cfg ReplayConfig, records repos.ProgressRecordRepo, index ProgressIndex, notifier *ProgressNotifier, metrics *observability.Metrics) *NotificationReplayer {
	if cfg.Grace <= 0 {
		cfg.Grace = 2 * time.Minute
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 500
	}
	return &NotificationReplayer{
		cfg:      cfg,
		records:  records,
		index:    index,
		notifier: notifier,
		metrics:  metrics,
		log:      baseLog.With("service", "NotificationReplayer"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *NotificationReplayer) ReplayOnce(ctx context.Context) (ReplayResult, error) {
	var res ReplayResult
	cutoff := r.now().Add(-r.cfg.Grace)
	dbc := dbctx.Context{Ctx: ctx}

	if r.index != nil {
		rows, err := r.records.ListPendingIndex(dbc, cutoff, r.cfg.Limit)
		if err != nil {
			return res, err
		}
		if len(rows) > 0 {
			if err := r.index.IndexRecords(ctx, rows); err != nil {
				r.metrics.IncIndexFailure()
				r.log.Warn("replay index write failed", "rows", len(rows), "error", err)
				res.Failed += len(rows)
			} else if err := r.records.MarkIndexed(dbc, rows); err != nil {
				return res, err
			} else {
				res.Indexed = len(rows)
				r.metrics.AddReplayed("index", len(rows))
			}
		}
	}

	if r.notifier != nil && r.notifier.sink != nil {
		rows, err := r.records.ListPendingNotification(dbc, cutoff, r.cfg.Limit)
		if err != nil {
			return res, err
		}
		for _, group := range groupByUserBatch(rows) {
			head := group[0]
			if err := r.notifier.Notify(ctx, head.UserID, head.BatchID, head.CourseID, group, false); err != nil {
				res.Failed += len(group)
				continue
			}
			res.Notified += len(group)
			r.metrics.AddReplayed("notification", len(group))
		}
	}

	if res.Indexed+res.Notified+res.Failed > 0 {
		r.log.Info("replay pass finished", "indexed", res.Indexed, "notified", res.Notified, "failed", res.Failed)
	}
	return res, nil
}

func groupByUserBatch(rows []*types.ProgressRecord) [][]*types.ProgressRecord {
	type key struct{ user, batch string }
	idx := map[key]int{}
	var out [][]*types.ProgressRecord
	for _, r := range rows {
		if r == nil {
			continue
		}
		k := key{r.UserID, r.BatchID}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r)
	}
	return out
}
