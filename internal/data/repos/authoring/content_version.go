package authoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

const pgUniqueViolation = "23505"

type ContentVersionRepo interface {
	// Create inserts one snapshot. A duplicate (entity_id, version_number) or a
	// second current row surfaces as ErrVersionConflict.
	Create(dbc dbctx.Context, v *types.ContentVersion) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error)
	ListByEntityID(dbc dbctx.Context, entityID uuid.UUID) ([]*types.ContentVersion, error)
	GetCurrent(dbc dbctx.Context, entityID uuid.UUID) (*types.ContentVersion, error)
	MaxVersionNumber(dbc dbctx.Context, entityID uuid.UUID) (int, error)
	// ClearCurrent demotes whichever snapshot of entityID is current.
	ClearCurrent(dbc dbctx.Context, entityID uuid.UUID) error
	// SetCurrent makes versionID the only current snapshot of entityID.
	SetCurrent(dbc dbctx.Context, entityID, versionID uuid.UUID) error
}

type contentVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentVersionRepo(db *gorm.DB, baseLog *logger.Logger) ContentVersionRepo {
	return &contentVersionRepo{db: db, log: baseLog.With("repo", "ContentVersionRepo")}
}

func (r *contentVersionRepo) Create(dbc dbctx.Context, v *types.ContentVersion) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if v == nil || v.EntityID == uuid.Nil {
		return fmt.Errorf("create content version: missing entity id")
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if err := t.WithContext(dbc.Ctx).Create(v).Error; err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("entity %s version %d: %w", v.EntityID, v.VersionNumber, types.ErrVersionConflict)
		}
		return err
	}
	return nil
}

func (r *contentVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.ContentVersion
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *contentVersionRepo) ListByEntityID(dbc dbctx.Context, entityID uuid.UUID) ([]*types.ContentVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.ContentVersion{}
	if entityID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("entity_id = ?", entityID).
		Order("version_number DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentVersionRepo) GetCurrent(dbc dbctx.Context, entityID uuid.UUID) (*types.ContentVersion, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ContentVersion
	if err := t.WithContext(dbc.Ctx).
		Where("entity_id = ? AND is_current = ?", entityID, true).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *contentVersionRepo) MaxVersionNumber(dbc dbctx.Context, entityID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var last int
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("entity_id = ?", entityID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last, nil
}

func (r *contentVersionRepo) ClearCurrent(dbc dbctx.Context, entityID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("entity_id = ? AND is_current = ?", entityID, true).
		Update("is_current", false).Error
}

func (r *contentVersionRepo) SetCurrent(dbc dbctx.Context, entityID, versionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx)
	if err := q.Model(&types.ContentVersion{}).
		Where("entity_id = ? AND is_current = ? AND id <> ?", entityID, true, versionID).
		Update("is_current", false).Error; err != nil {
		return err
	}
	res := q.Model(&types.ContentVersion{}).
		Where("entity_id = ? AND id = ?", entityID, versionID).
		Update("is_current", true)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return fmt.Errorf("entity %s current version: %w", entityID, types.ErrVersionConflict)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("version %s of entity %s: %w", versionID, entityID, types.ErrNotFound)
	}
	return nil
}

// IsUniqueViolation recognizes unique-index failures from gorm's error
// translation, from pgx directly, and from SQLite's message text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
