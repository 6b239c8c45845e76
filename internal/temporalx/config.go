package temporalx

import (
	"time"

	"github.com/yungbote/progress-reconciler/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout time.Duration
	DialMaxWait time.Duration
	Backoff     time.Duration
	BackoffMax  time.Duration

	// ReplayCron is the cron schedule of the notification replay workflow.
	// Empty disables scheduling.
	ReplayCron       string
	ReplayWorkflowID string
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "progress-reconciler"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "progress-reconciler"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),

		DialTimeout: envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second),
		DialMaxWait: envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60*time.Second),
		Backoff:     envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250*time.Millisecond),
		BackoffMax:  envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5*time.Second),

		ReplayCron:       envutil.String("NOTIFY_REPLAY_CRON", "*/10 * * * *"),
		ReplayWorkflowID: envutil.String("NOTIFY_REPLAY_WORKFLOW_ID", "progress-notification-replay"),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
