package graph

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/platform/neo4jdb"
)

// LearnerProgressGraph mirrors progress records as
// (:Learner)-[:PROGRESS {batch_id}]->(:Content) relationships.
type LearnerProgressGraph struct {
	client     *neo4jdb.Client
	log        *logger.Logger
	schemaOnce sync.Once
}

func NewLearnerProgressGraph(client *neo4jdb.Client, baseLog *logger.Logger) *LearnerProgressGraph {
	return &LearnerProgressGraph{client: client, log: baseLog.With("index", "Neo4jLearnerProgress")}
}

func (g *LearnerProgressGraph) IndexRecords(ctx context.Context, rows []*types.ProgressRecord) error {
	if g == nil || g.client == nil || g.client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	relRows := progressRows(rows, now)
	if len(relRows) == 0 {
		return nil
	}

	session := g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.client.Database,
	})
	defer session.Close(ctx)

	g.schemaOnce.Do(func() {
		for _, stmt := range []string{
			`CREATE CONSTRAINT learner_id_unique IF NOT EXISTS FOR (l:Learner) REQUIRE l.id IS UNIQUE`,
			`CREATE CONSTRAINT content_id_unique IF NOT EXISTS FOR (c:Content) REQUIRE c.id IS UNIQUE`,
		} {
			if res, err := session.Run(ctx, stmt, nil); err != nil {
				g.log.Warn("neo4j schema init failed (continuing)", "error", err)
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	})

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $rows AS r
MERGE (l:Learner {id: r.user_id})
MERGE (c:Content {id: r.content_id})
MERGE (l)-[p:PROGRESS {batch_id: r.batch_id, course_id: r.course_id}]->(c)
SET p.status = r.status,
    p.progress = r.progress,
    p.view_count = r.view_count,
    p.completed_count = r.completed_count,
    p.last_access_time = r.last_access_time,
    p.last_completed_time = r.last_completed_time,
    p.last_updated_time = r.last_updated_time,
    p.synced_at = r.synced_at
`, map[string]any{"rows": relRows})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func progressRows(rows []*types.ProgressRecord, syncedAt string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.UserID == "" || r.BatchID == "" || r.ContentID == "" {
			continue
		}
		out = append(out, map[string]any{
			"user_id":             r.UserID,
			"course_id":           r.CourseID,
			"batch_id":            r.BatchID,
			"content_id":          r.ContentID,
			"status":              int64(r.Status),
			"progress":            int64(r.Progress),
			"view_count":          int64(r.ViewCount),
			"completed_count":     int64(r.CompletedCount),
			"last_access_time":    formatTime(r.LastAccessTime),
			"last_completed_time": formatTime(r.LastCompletedTime),
			"last_updated_time":   r.LastUpdatedTime.UTC().Format(time.RFC3339Nano),
			"synced_at":           syncedAt,
		})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
