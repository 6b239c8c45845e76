package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/temporalx"
	"github.com/yungbote/progress-reconciler/internal/temporalx/replay"
)

type Runner struct {
	log      *logger.Logger
	cfg      temporalx.Config
	tc       temporalsdkclient.Client
	replayer replay.Replayer
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, replayer replay.Replayer) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if replayer == nil {
		return nil, fmt.Errorf("temporal worker missing replayer")
	}
	return &Runner{
		log:      log.With("component", "TemporalWorker"),
		cfg:      cfg,
		tc:       tc,
		replayer: replayer,
	}, nil
}

// Start polls the task queue until ctx is done and schedules the replay cron.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return r.scheduleReplay(ctx)
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return fmt.Errorf("temporal worker start (namespace=%s): %w", r.cfg.Namespace, startErr)
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.ClampBackoff(r.cfg.Backoff, r.cfg.BackoffMax, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     1,
		MaxConcurrentWorkflowTaskExecutionSize: 2,
	})
	acts := &replay.Activities{Log: r.log, Replayer: r.replayer}
	w.RegisterWorkflowWithOptions(replay.Workflow, workflow.RegisterOptions{Name: replay.WorkflowName})
	w.RegisterActivityWithOptions(acts.ReplayOnce, activity.RegisterOptions{Name: replay.ActivityReplay})
	return w
}

func (r *Runner) scheduleReplay(ctx context.Context) error {
	if r.cfg.ReplayCron == "" {
		r.log.Info("NOTIFY_REPLAY_CRON empty; replay cron not scheduled")
		return nil
	}
	_, err := r.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:           r.cfg.ReplayWorkflowID,
		TaskQueue:    r.cfg.TaskQueue,
		CronSchedule: r.cfg.ReplayCron,
	}, replay.WorkflowName)
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		r.log.Debug("replay cron already scheduled", "workflow_id", r.cfg.ReplayWorkflowID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule replay cron: %w", err)
	}
	r.log.Info("replay cron scheduled", "workflow_id", r.cfg.ReplayWorkflowID, "cron", r.cfg.ReplayCron)
	return nil
}
