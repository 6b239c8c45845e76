package app

import (
	"github.com/yungbote/progress-reconciler/internal/data/graph"
	"github.com/yungbote/progress-reconciler/internal/data/index"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/services"
)

type Services struct {
	Progress services.ProgressService
	Notifier *services.ProgressNotifier
	Replayer *services.NotificationReplayer
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	// Batch directory: remote service when configured, local table otherwise.
	var dir services.BatchDirectory = reposet.CourseBatch
	if clients.BatchDirectory != nil {
		dir = clients.BatchDirectory
	}

	var idx services.ProgressIndex
	switch cfg.ProgressIndex {
	case IndexRedis:
		if clients.Redis != nil {
			idx = index.NewRedisProgressIndex(clients.Redis, cfg.ProgressIndexPrefix, log)
		} else {
			log.Warn("PROGRESS_INDEX=redis without REDIS_ADDR; indexing disabled")
		}
	case IndexNeo4j:
		if clients.Neo4j != nil {
			idx = graph.NewLearnerProgressGraph(clients.Neo4j, log)
		} else {
			log.Warn("PROGRESS_INDEX=neo4j without NEO4J_URI; indexing disabled")
		}
	}

	var notifySink services.NotificationSink
	if clients.Notifications != nil {
		notifySink = clients.Notifications
	}
	var assessSink services.AssessmentSink
	if clients.Assessments != nil {
		assessSink = clients.Assessments
	}

	gate := services.NewProgressGate(dir, log)
	writer := services.NewProgressWriter(log, reposet.ProgressRecord, reposet.EnrollmentPointer, idx, metrics)
	notifier := services.NewProgressNotifier(log, notifySink, cfg.NotificationTopic, reposet.ProgressRecord, metrics)
	relay := services.NewAssessmentRelay(log, assessSink, metrics)

	progress := services.NewProgressService(
		log,
		services.ProgressConfig{
			BatchConcurrency:       cfg.BatchConcurrency,
			MaxEvents:              cfg.MaxEvents,
			CountRepeatCompletions: cfg.CountRepeatCompletions,
		},
		gate,
		reposet.ProgressRecord,
		writer,
		notifier,
		relay,
		metrics,
	)
	replayer := services.NewNotificationReplayer(
		log,
		services.ReplayConfig{Grace: cfg.ReplayGrace, Limit: cfg.ReplayLimit},
		reposet.ProgressRecord,
		idx,
		notifier,
		metrics,
	)

	return Services{
		Progress: progress,
		Notifier: notifier,
		Replayer: replayer,
	}
}
