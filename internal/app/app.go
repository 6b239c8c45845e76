package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbx "github.com/yungbote/progress-reconciler/internal/data/db"
	httpx "github.com/yungbote/progress-reconciler/internal/http"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpx.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the full service. The caller owns Close.
func New() (*App, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg := LoadConfig(nil)

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg = LoadConfig(log)

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(context.Background(), log, cfg.Otel)

	theDB, err := dbx.Open(cfg.DB, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := dbx.AutoMigrateAll(theDB); err != nil {
		a.Close()
		return nil, fmt.Errorf("store automigrate: %w", err)
	}
	a.DB = theDB

	clients, err := wireClients(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Metrics = observability.NewMetrics()
	a.Repos = wireRepos(theDB, log)
	a.Services = wireServices(log, cfg, a.Clients, a.Repos, a.Metrics)

	handlerset := wireHandlers(log, theDB, a.Services)
	a.Server = httpx.NewServer(httpx.RouterConfig{
		ProgressHandler: handlerset.Progress,
		HealthHandler:   handlerset.Health,
		Metrics:         a.Metrics,
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins,
		ServiceName:     cfg.Otel.ServiceName,
	})
	return a, nil
}

// Start launches background work: the Temporal replay worker when Temporal
// is configured.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if !a.Cfg.Temporal.Enabled() {
		return nil
	}
	tc, err := wireTemporal(a.Log, a.Cfg.Temporal)
	if err != nil {
		return err
	}
	a.Clients.Temporal = tc
	runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, tc, a.Services.Replayer)
	if err != nil {
		return err
	}
	return runner.Start(ctx)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
