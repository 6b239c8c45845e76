package replay

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/progress-reconciler/internal/services"
)

type scriptedReplayer struct {
	results []services.ReplayResult
	err     error
	calls   int
}

func (s *scriptedReplayer) ReplayOnce(ctx context.Context) (services.ReplayResult, error) {
	s.calls++
	if s.err != nil {
		return services.ReplayResult{}, s.err
	}
	if s.calls > len(s.results) {
		return services.ReplayResult{}, nil
	}
	return s.results[s.calls-1], nil
}

func runWorkflow(t *testing.T, r Replayer) (RunResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Replayer: r}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.ReplayOnce, activity.RegisterOptions{Name: ActivityReplay})

	env.ExecuteWorkflow(WorkflowName)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	var out RunResult
	if err := env.GetWorkflowError(); err != nil {
		return out, err
	}
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	return out, nil
}

func TestWorkflowDrainsUntilIdle(t *testing.T) {
	r := &scriptedReplayer{results: []services.ReplayResult{
		{Indexed: 3, Notified: 2},
		{Notified: 1, Failed: 1},
	}}
	out, err := runWorkflow(t, r)
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if out.Passes != 3 || out.Indexed != 3 || out.Notified != 3 || out.Failed != 1 {
		t.Fatalf("result: got=%+v", out)
	}
}

func TestWorkflowStopsWhenOnlyFailuresRemain(t *testing.T) {
	r := &scriptedReplayer{results: []services.ReplayResult{{Failed: 4}}}
	out, err := runWorkflow(t, r)
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if out.Passes != 1 || r.calls != 1 {
		t.Fatalf("want one pass, got passes=%d calls=%d", out.Passes, r.calls)
	}
}

func TestWorkflowSurfacesActivityError(t *testing.T) {
	r := &scriptedReplayer{err: errors.New("store down")}
	if _, err := runWorkflow(t, r); err == nil {
		t.Fatalf("expected workflow error")
	}
}
