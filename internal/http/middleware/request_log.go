package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/progress-reconciler/internal/platform/ctxutil"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

// RequestLogger writes one line per request. Progress handlers add the learner,
// the batch, and the event and failure counts through the request's TraceData.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
			if td.UserID != "" {
				fields = append(fields, "user_id", td.UserID)
			}
			if td.BatchID != "" {
				fields = append(fields, "batch_id", td.BatchID)
			}
			if td.EventCount > 0 {
				fields = append(fields, "events", td.EventCount, "failed_units", td.FailedUnits)
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
