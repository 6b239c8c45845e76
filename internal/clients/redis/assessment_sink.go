package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

// AssessmentSink appends raw assessment payloads to a Redis stream, one entry
// per event.
type AssessmentSink interface {
	Publish(ctx context.Context, payload []byte) error
}

type assessmentSink struct {
	log    *logger.Logger
	rdb    goredis.Cmdable
	stream string
	maxLen int64
}

func NewAssessmentSink(rdb goredis.Cmdable, stream string, maxLen int64, log *logger.Logger) (AssessmentSink, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, fmt.Errorf("assessment stream required")
	}
	return &assessmentSink{
		log:    log.With("service", "RedisAssessmentSink", "stream", stream),
		rdb:    rdb,
		stream: stream,
		maxLen: maxLen,
	}, nil
}

func (s *assessmentSink) Publish(ctx context.Context, payload []byte) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis assessment sink not initialized")
	}
	args := &goredis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"payload": payload},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
