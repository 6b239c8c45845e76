package replay

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs replay passes until one finds nothing to do or makes no
// progress. It is started on a cron schedule.
func Workflow(ctx workflow.Context) (RunResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var out RunResult
	for out.Passes < maxPassesPerRun {
		var pass PassResult
		if err := workflow.ExecuteActivity(ctx, ActivityReplay).Get(ctx, &pass); err != nil {
			return out, err
		}
		out.Passes++
		out.Indexed += pass.Indexed
		out.Notified += pass.Notified
		out.Failed += pass.Failed

		if pass.Indexed+pass.Notified == 0 {
			break
		}
	}
	workflow.GetLogger(ctx).Info("notification replay finished",
		"passes", out.Passes, "indexed", out.Indexed, "notified", out.Notified, "failed", out.Failed)
	return out, nil
}
