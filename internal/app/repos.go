package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type Repos struct {
	ContentEntity  repos.ContentEntityRepo
	ContentVersion repos.ContentVersionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ContentEntity:  repos.NewContentEntityRepo(db, log),
		ContentVersion: repos.NewContentVersionRepo(db, log),
	}
}
