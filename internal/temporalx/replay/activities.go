package replay

import (
	"context"
	"fmt"

	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/services"
)

type Replayer interface {
	ReplayOnce(ctx context.Context) (services.ReplayResult, error)
}

type Activities struct {
	Log      *logger.Logger
	Replayer Replayer
}

func (a *Activities) ReplayOnce(ctx context.Context) (PassResult, error) {
	if a == nil || a.Replayer == nil {
		return PassResult{}, fmt.Errorf("replay: activity not configured")
	}
	res, err := a.Replayer.ReplayOnce(ctx)
	if err != nil {
		return PassResult{}, err
	}
	if a.Log != nil && res.Failed > 0 {
		a.Log.Warn("replay pass left failures", "indexed", res.Indexed, "notified", res.Notified, "failed", res.Failed)
	}
	return PassResult{Indexed: res.Indexed, Notified: res.Notified, Failed: res.Failed}, nil
}
