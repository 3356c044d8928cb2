package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
	"github.com/yungbote/neurobridge-authoring/internal/services"
)

type Services struct {
	Authoring services.AuthoringService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	return Services{
		Authoring: services.NewAuthoringService(db, log, services.AuthoringDeps{
			Entities:        reposet.ContentEntity,
			Versions:        reposet.ContentVersion,
			Generator:       clients.Generator,
			PrimaryProvider: cfg.PrimaryProvider,
			Metrics:         metrics,
		}),
	}
}
