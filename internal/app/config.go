package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	dbx "github.com/yungbote/progress-reconciler/internal/data/db"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/envutil"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/temporalx"
)

const (
	IndexRedis = "redis"
	IndexNeo4j = "neo4j"
	IndexNone  = "none"
)

type Config struct {
	LogMode     string
	HTTPAddr    string
	CORSOrigins []string

	DB dbx.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotificationTopic      string
	AssessmentStream       string
	AssessmentStreamMaxLen int64

	ProgressIndex       string
	ProgressIndexPrefix string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
	Neo4jTimeout  time.Duration

	BatchDirectoryURL     string
	BatchDirectoryTimeout time.Duration

	BatchConcurrency       int
	MaxEvents              int
	CountRepeatCompletions bool

	ReplayGrace time.Duration
	ReplayLimit int

	Temporal temporalx.Config
	Otel     observability.OtelConfig
}

// LoadEnv loads .env and the optional CONFIG_FILE overlay. Values already
// present in the environment win over both.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE %s: %w", path, err)
	}
	return applyOverlay(raw)
}

// applyOverlay sets every key of a flat YAML mapping that the environment
// does not already define.
func applyOverlay(raw []byte) error {
	var overlay map[string]any
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config overlay: %w", err)
	}
	for k, v := range overlay {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if _, set := envutil.Lookup(key); set {
			continue
		}
		var val string
		switch vv := v.(type) {
		case []any:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			val = strings.Join(parts, ",")
		default:
			val = fmt.Sprint(vv)
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),

		DB: dbx.Config{
			Driver:        strings.ToLower(envutil.String("DB_DRIVER", dbx.DriverPostgres)),
			SQLitePath:    envutil.String("SQLITE_PATH", ""),
			Host:          envutil.String("POSTGRES_HOST", "localhost"),
			Port:          envutil.String("POSTGRES_PORT", "5432"),
			User:          envutil.String("POSTGRES_USER", "postgres"),
			Password:      envutil.String("POSTGRES_PASSWORD", ""),
			Name:          envutil.String("POSTGRES_NAME", "progress"),
			MaxOpenConns:  envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
			SlowThreshold: envutil.Millis("DB_SLOW_THRESHOLD_MS", time.Second),
		},

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		NotificationTopic:      envutil.String("NOTIFICATION_TOPIC", "progress.enrolment.updates"),
		AssessmentStream:       envutil.String("ASSESSMENT_STREAM", "progress.assessments"),
		AssessmentStreamMaxLen: int64(envutil.Int("ASSESSMENT_STREAM_MAXLEN", 100000)),

		ProgressIndex:       strings.ToLower(envutil.String("PROGRESS_INDEX", IndexRedis)),
		ProgressIndexPrefix: envutil.String("PROGRESS_INDEX_PREFIX", "progress"),

		Neo4jURI:      envutil.String("NEO4J_URI", ""),
		Neo4jUser:     envutil.String("NEO4J_USER", ""),
		Neo4jPassword: envutil.String("NEO4J_PASSWORD", ""),
		Neo4jDatabase: envutil.String("NEO4J_DATABASE", ""),
		Neo4jTimeout:  envutil.Millis("NEO4J_TIMEOUT_MS", 10*time.Second),

		BatchDirectoryURL:     envutil.String("BATCH_DIRECTORY_URL", ""),
		BatchDirectoryTimeout: envutil.Millis("BATCH_DIRECTORY_TIMEOUT_MS", 3*time.Second),

		BatchConcurrency:       envutil.Int("PROGRESS_BATCH_CONCURRENCY", 4),
		MaxEvents:              envutil.Int("PROGRESS_MAX_EVENTS", 500),
		CountRepeatCompletions: envutil.Bool("PROGRESS_COUNT_REPEAT_COMPLETIONS", true),

		ReplayGrace: envutil.Seconds("NOTIFY_REPLAY_GRACE_SECONDS", 2*time.Minute),
		ReplayLimit: envutil.Int("NOTIFY_REPLAY_LIMIT", 500),

		Temporal: temporalx.LoadConfig(),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "progress-reconciler"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}

	switch cfg.ProgressIndex {
	case IndexRedis, IndexNeo4j, IndexNone:
	default:
		if log != nil {
			log.Warn("unknown PROGRESS_INDEX; indexing disabled", "value", cfg.ProgressIndex)
		}
		cfg.ProgressIndex = IndexNone
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if cfg.MaxEvents < 1 {
		cfg.MaxEvents = 500
	}
	return cfg
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envFloat(name string, def float64) float64 {
	v, ok := envutil.Lookup(name)
	if !ok {
		return def
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return def
	}
	return f
}
