package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.ContentEntity{},
		&types.ContentVersion{},
	)
}

// EnsureAuthoringIndexes adds the indexes gorm tags cannot express. The SQL is
// valid for both Postgres and SQLite.
func EnsureAuthoringIndexes(db *gorm.DB) error {
	// At most one current snapshot per entity.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_content_version_current
		ON content_version (entity_id)
		WHERE is_current;
	`).Error; err != nil {
		return fmt.Errorf("create idx_content_version_current: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_content_entity_status_updated
		ON content_entity (status, updated_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_content_entity_status_updated: %w", err)
	}
	return nil
}

// Migrate runs AutoMigrateAll and EnsureAuthoringIndexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureAuthoringIndexes(db)
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating authoring tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAuthoringIndexes(s.db); err != nil {
		s.log.Error("Authoring index migration failed", "error", err)
		return err
	}
	s.log.Info("Auto migration complete")
	return nil
}
