package authoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type ContentEntityRepo interface {
	Create(dbc dbctx.Context, e *types.ContentEntity) (*types.ContentEntity, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentEntity, error)
	// GetForUpdate reads the row under a row lock. Must run inside a transaction.
	GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.ContentEntity, error)
	List(dbc dbctx.Context, status types.Status, limit int) ([]*types.ContentEntity, error)
	// Update writes every column of e. ErrNotFound when the row is gone.
	Update(dbc dbctx.Context, e *types.ContentEntity) error
	// UpdateStatus moves id from -> to; false when the row was not in from.
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, from, to types.Status) (bool, error)
}

type contentEntityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentEntityRepo(db *gorm.DB, baseLog *logger.Logger) ContentEntityRepo {
	return &contentEntityRepo{db: db, log: baseLog.With("repo", "ContentEntityRepo")}
}

func (r *contentEntityRepo) Create(dbc dbctx.Context, e *types.ContentEntity) (*types.ContentEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if e == nil {
		return nil, fmt.Errorf("create content entity: nil row")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = types.StatusDraft
	}
	if err := t.WithContext(dbc.Ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *contentEntityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx), id)
}

func (r *contentEntityRepo) GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.ContentEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *contentEntityRepo) first(q *gorm.DB, id uuid.UUID) (*types.ContentEntity, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.ContentEntity
	if err := q.Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *contentEntityRepo) List(dbc dbctx.Context, status types.Status, limit int) ([]*types.ContentEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&types.ContentEntity{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.ContentEntity
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentEntityRepo) Update(dbc dbctx.Context, e *types.ContentEntity) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if e == nil || e.ID == uuid.Nil {
		return fmt.Errorf("update content entity: missing id")
	}
	e.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.ContentEntity{}).
		Where("id = ?", e.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("content entity %s: %w", e.ID, types.ErrNotFound)
	}
	return nil
}

func (r *contentEntityRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, from, to types.Status) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.ContentEntity{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
