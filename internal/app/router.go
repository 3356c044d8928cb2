package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/neurobridge-authoring/internal/http"
	httpH "github.com/yungbote/neurobridge-authoring/internal/http/handlers"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg Config, serviceset Services, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring router...")
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		ContentHandler: httpH.NewContentHandler(log, serviceset.Authoring),
		HealthHandler:  httpH.NewHealthHandler(db),
	})
}
