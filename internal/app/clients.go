package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/progress-reconciler/internal/clients/batchdirectory"
	"github.com/yungbote/progress-reconciler/internal/clients/redis"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/platform/neo4jdb"
	"github.com/yungbote/progress-reconciler/internal/temporalx"
)

type Clients struct {
	Redis          *goredis.Client
	Notifications  redis.NotificationSink
	Assessments    redis.AssessmentSink
	Neo4j          *neo4jdb.Client
	BatchDirectory *batchdirectory.Client
	Temporal       temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redis.Dial(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		out.Redis = rdb
		if out.Notifications, err = redis.NewNotificationSink(rdb, log); err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init notification sink: %w", err)
		}
		if out.Assessments, err = redis.NewAssessmentSink(rdb, cfg.AssessmentStream, cfg.AssessmentStreamMaxLen, log); err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init assessment sink: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; notifications and assessment relay disabled")
	}

	if cfg.ProgressIndex == IndexNeo4j {
		nc, err := neo4jdb.New(neo4jdb.Config{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
			Timeout:  cfg.Neo4jTimeout,
		}, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init neo4j: %w", err)
		}
		out.Neo4j = nc
	}

	if cfg.BatchDirectoryURL != "" {
		dir, err := batchdirectory.New(batchdirectory.Config{
			BaseURL: cfg.BatchDirectoryURL,
			Timeout: cfg.BatchDirectoryTimeout,
		}, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init batch directory: %w", err)
		}
		out.BatchDirectory = dir
	}

	return out, nil
}

// wireTemporal is separate so the HTTP process can start without Temporal.
func wireTemporal(log *logger.Logger, cfg temporalx.Config) (temporalsdkclient.Client, error) {
	tc, err := temporalx.NewClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init temporal: %w", err)
	}
	return tc, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
		c.Temporal = nil
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(context.Background())
		c.Neo4j = nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
}
