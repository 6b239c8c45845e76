package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/progress-reconciler/internal/http/handlers"
	httpMW "github.com/yungbote/progress-reconciler/internal/http/middleware"
	"github.com/yungbote/progress-reconciler/internal/observability"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type RouterConfig struct {
	ProgressHandler *httpH.ProgressHandler
	HealthHandler   *httpH.HealthHandler

	Metrics     *observability.Metrics
	Log         *logger.Logger
	CORSOrigins []string
	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		// Content state
		if cfg.ProgressHandler != nil {
			api.POST("/content/state/update", cfg.ProgressHandler.UpdateContentState)
			api.POST("/content/state/read", cfg.ProgressHandler.ReadContentState)
		}
	}

	return r
}
