package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

// NotificationSink publishes enrolment-change notifications on a pub/sub
// channel. Delivery is fire-and-forget.
type NotificationSink interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type notificationSink struct {
	log *logger.Logger
	rdb goredis.Cmdable
}

func NewNotificationSink(rdb goredis.Cmdable, log *logger.Logger) (NotificationSink, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &notificationSink{
		log: log.With("service", "RedisNotificationSink"),
		rdb: rdb,
	}, nil
}

func (s *notificationSink) Publish(ctx context.Context, topic string, payload []byte) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis notification sink not initialized")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("notification topic required")
	}
	receivers, err := s.rdb.Publish(ctx, topic, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	if receivers == 0 {
		s.log.Debug("notification published with no subscribers", "topic", topic)
	}
	return nil
}
