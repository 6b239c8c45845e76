package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/progress-reconciler/internal/http/handlers"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

type Handlers struct {
	Progress *httpH.ProgressHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Progress: httpH.NewProgressHandler(log, serviceset.Progress),
		Health:   httpH.NewHealthHandler(db),
	}
}
