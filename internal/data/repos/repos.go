package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type ContentEntityRepo = authoring.ContentEntityRepo
type ContentVersionRepo = authoring.ContentVersionRepo

func NewContentEntityRepo(db *gorm.DB, baseLog *logger.Logger) ContentEntityRepo {
	return authoring.NewContentEntityRepo(db, baseLog)
}
func NewContentVersionRepo(db *gorm.DB, baseLog *logger.Logger) ContentVersionRepo {
	return authoring.NewContentVersionRepo(db, baseLog)
}
