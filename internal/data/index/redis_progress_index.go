package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

const defaultKeyPrefix = "progress"

// IndexedProgress is the denormalized view of a ProgressRecord kept in the
// search index. One hash per (user, batch), one field per content.
type IndexedProgress struct {
	CourseID          string `json:"courseId"`
	ContentID         string `json:"contentId"`
	Status            int    `json:"status"`
	Progress          int    `json:"progress"`
	ViewCount         int    `json:"viewCount"`
	CompletedCount    int    `json:"completedCount"`
	LastAccessTime    string `json:"lastAccessTime,omitempty"`
	LastCompletedTime string `json:"lastCompletedTime,omitempty"`
	LastUpdatedTime   string `json:"lastUpdatedTime"`
}

type RedisProgressIndex struct {
	rdb    goredis.Cmdable
	prefix string
	log    *logger.Logger
}

func NewRedisProgressIndex(rdb goredis.Cmdable, prefix string, baseLog *logger.Logger) *RedisProgressIndex {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisProgressIndex{rdb: rdb, prefix: prefix, log: baseLog.With("index", "RedisProgressIndex")}
}

func (ix *RedisProgressIndex) Key(userID, batchID string) string {
	return fmt.Sprintf("%s:%s:%s", ix.prefix, userID, batchID)
}

// IndexRecords writes all rows in one pipeline.
func (ix *RedisProgressIndex) IndexRecords(ctx context.Context, rows []*types.ProgressRecord) error {
	if ix == nil || ix.rdb == nil || len(rows) == 0 {
		return nil
	}
	fields := map[string][]any{}
	order := []string{}
	for _, r := range rows {
		if r == nil || r.UserID == "" || r.BatchID == "" || r.ContentID == "" {
			continue
		}
		raw, err := json.Marshal(toIndexed(r))
		if err != nil {
			return fmt.Errorf("encode indexed progress: %w", err)
		}
		key := ix.Key(r.UserID, r.BatchID)
		if _, ok := fields[key]; !ok {
			order = append(order, key)
		}
		fields[key] = append(fields[key], r.ContentID, string(raw))
	}
	if len(order) == 0 {
		return nil
	}

	pipe := ix.rdb.Pipeline()
	for _, key := range order {
		pipe.HSet(ctx, key, fields[key]...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index progress: %w", err)
	}
	return nil
}

func (ix *RedisProgressIndex) Get(ctx context.Context, userID, batchID string) (map[string]IndexedProgress, error) {
	raw, err := ix.rdb.HGetAll(ctx, ix.Key(userID, batchID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]IndexedProgress, len(raw))
	for contentID, v := range raw {
		var row IndexedProgress
		if err := json.Unmarshal([]byte(v), &row); err != nil {
			ix.log.Warn("bad indexed progress entry", "key", ix.Key(userID, batchID), "content_id", contentID, "error", err)
			continue
		}
		out[contentID] = row
	}
	return out, nil
}

func toIndexed(r *types.ProgressRecord) IndexedProgress {
	return IndexedProgress{
		CourseID:          r.CourseID,
		ContentID:         r.ContentID,
		Status:            int(r.Status),
		Progress:          r.Progress,
		ViewCount:         r.ViewCount,
		CompletedCount:    r.CompletedCount,
		LastAccessTime:    formatTime(r.LastAccessTime),
		LastCompletedTime: formatTime(r.LastCompletedTime),
		LastUpdatedTime:   r.LastUpdatedTime.UTC().Format(time.RFC3339Nano),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
