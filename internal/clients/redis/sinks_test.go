package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestDialEmptyAddr(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	rdb, err := Dial(Config{}, log)
	if err != nil || rdb != nil {
		t.Fatalf("Dial empty addr: rdb=%v err=%v", rdb, err)
	}
}

func TestNotificationSinkPublish(t *testing.T) {
	_, rdb := newTestRedis(t)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	sink, err := NewNotificationSink(rdb, log)
	if err != nil {
		t.Fatalf("NewNotificationSink: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, "progress.notifications")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := sink.Publish(ctx, "progress.notifications", []byte(`{"eid":"BE_JOB_REQUEST"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"eid":"BE_JOB_REQUEST"}` {
			t.Fatalf("payload: want=%s got=%s", `{"eid":"BE_JOB_REQUEST"}`, msg.Payload)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}

	if err := sink.Publish(ctx, "  ", []byte("x")); err == nil {
		t.Fatalf("empty topic should fail")
	}
}

func TestAssessmentSinkPublishVerbatim(t *testing.T) {
	_, rdb := newTestRedis(t)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	sink, err := NewAssessmentSink(rdb, "assessments", 100, log)
	if err != nil {
		t.Fatalf("NewAssessmentSink: %v", err)
	}

	ctx := context.Background()
	payloads := []string{
		`{"batchId":"b1","assessmentTs":1,"score":3}`,
		`{"batchId":"b1","assessmentTs":2, "score" : 4}`,
	}
	for _, p := range payloads {
		if err := sink.Publish(ctx, []byte(p)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	entries, err := rdb.XRange(ctx, "assessments", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != len(payloads) {
		t.Fatalf("entries: want=%d got=%d", len(payloads), len(entries))
	}
	for i, e := range entries {
		if got := e.Values["payload"]; got != payloads[i] {
			t.Fatalf("entry %d: want=%s got=%v", i, payloads[i], got)
		}
	}
}

func TestAssessmentSinkRequiresStream(t *testing.T) {
	_, rdb := newTestRedis(t)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if _, err := NewAssessmentSink(rdb, "", 0, log); err == nil {
		t.Fatalf("empty stream should fail")
	}
}
