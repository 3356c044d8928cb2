// Package versions is the append-only snapshot log of a ContentEntity. Every
// committed change mints the next version number for the entity and moves the
// current marker to it inside one transaction; restore moves the marker back
// without minting anything.
package versions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/draft"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/keylock"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

// maxAttempts covers one retry after a numbering collision with another process.
const maxAttempts = 2

// Mutation edits a private clone of the locked entity. Returning an error aborts
// the commit and leaves the stored entity untouched.
type Mutation func(e *types.ContentEntity) error

type Result struct {
	Entity    *types.ContentEntity  `json:"entity"`
	Version   *types.ContentVersion `json:"version"`
	Integrity types.IntegrityReport `json:"integrity"`
}

type Log struct {
	db       *gorm.DB
	log      *logger.Logger
	entities repos.ContentEntityRepo
	versions repos.ContentVersionRepo
	locks    *keylock.Locker
}

func NewLog(db *gorm.DB, baseLog *logger.Logger, entities repos.ContentEntityRepo, versions repos.ContentVersionRepo) *Log {
	return &Log{
		db:       db,
		log:      baseLog.With("service", "VersionLog"),
		entities: entities,
		versions: versions,
		locks:    keylock.New(),
	}
}

// Commit applies mutate to the entity and records the outcome as the next version.
func (l *Log) Commit(ctx context.Context, entityID uuid.UUID, reason string, meta types.SnapshotMeta, mutate Mutation) (*Result, error) {
	unlock, err := l.locks.LockContext(ctx, entityID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var res *Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = l.commitOnce(ctx, entityID, reason, meta, mutate)
		if err == nil || !errors.Is(err, types.ErrVersionConflict) || attempt == maxAttempts {
			break
		}
		l.log.Warn("Version number collision, retrying", "entity_id", entityID, "attempt", attempt, "error", err)
	}
	if err != nil {
		return nil, err
	}

	l.log.Info("Version created",
		"entity_id", entityID,
		"version", res.Version.VersionNumber,
		"reason", reason,
		"model", meta.Model,
	)
	if res.Integrity.Shrunk {
		l.log.Warn("Content shrank on save", "entity_id", entityID, "version", res.Version.VersionNumber, "fields", res.Integrity.Fields)
	}
	return res, nil
}

// CreateVersion snapshots entity as submitted by the caller: its authored fields
// replace the stored draft and become the next version.
func (l *Log) CreateVersion(ctx context.Context, entity *types.ContentEntity, meta types.SnapshotMeta, reason string) (*Result, error) {
	if entity == nil || entity.ID == uuid.Nil {
		return nil, fmt.Errorf("create version: missing entity id")
	}
	return l.Commit(ctx, entity.ID, reason, meta, func(e *types.ContentEntity) error {
		draft.CopyContent(e, entity)
		return nil
	})
}

func (l *Log) commitOnce(ctx context.Context, entityID uuid.UUID, reason string, meta types.SnapshotMeta, mutate Mutation) (*Result, error) {
	var out *Result
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		current, err := l.entities.GetForUpdate(dbc, entityID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("content entity %s: %w", entityID, types.ErrNotFound)
		}

		next := draft.Clone(current)
		if mutate != nil {
			if err := mutate(next); err != nil {
				return err
			}
		}
		next.ID = current.ID

		last, err := l.versions.MaxVersionNumber(dbc, entityID)
		if err != nil {
			return err
		}
		v := draft.Capture(next, reason, meta)
		v.VersionNumber = last + 1
		v.IsCurrent = true

		if err := l.versions.ClearCurrent(dbc, entityID); err != nil {
			return err
		}
		if err := l.versions.Create(dbc, v); err != nil {
			return err
		}
		if err := l.entities.Update(dbc, next); err != nil {
			return err
		}

		out = &Result{Entity: next, Version: v, Integrity: draft.Integrity(current, next)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Restore makes versionID current and copies its content back into the draft.
// No version is minted; the restored snapshot itself becomes current.
func (l *Log) Restore(ctx context.Context, entityID, versionID uuid.UUID) (*Result, error) {
	unlock, err := l.locks.LockContext(ctx, entityID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *Result
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		current, err := l.entities.GetForUpdate(dbc, entityID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("content entity %s: %w", entityID, types.ErrNotFound)
		}
		v, err := l.versions.GetByID(dbc, versionID)
		if err != nil {
			return err
		}
		if v == nil || v.EntityID != entityID {
			return fmt.Errorf("version %s of entity %s: %w", versionID, entityID, types.ErrNotFound)
		}

		next := draft.Clone(current)
		draft.RestoreFrom(next, v)
		if err := l.versions.SetCurrent(dbc, entityID, v.ID); err != nil {
			return err
		}
		if err := l.entities.Update(dbc, next); err != nil {
			return err
		}
		v.IsCurrent = true
		out = &Result{Entity: next, Version: v, Integrity: draft.Integrity(current, next)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("Version restored", "entity_id", entityID, "version", out.Version.VersionNumber)
	return out, nil
}

// List returns every version of entityID, newest first.
func (l *Log) List(ctx context.Context, entityID uuid.UUID) ([]*types.ContentVersion, error) {
	dbc := dbctx.Context{Ctx: ctx}
	e, err := l.entities.GetByID(dbc, entityID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("content entity %s: %w", entityID, types.ErrNotFound)
	}
	return l.versions.ListByEntityID(dbc, entityID)
}

// Get returns versionID only when it belongs to entityID.
func (l *Log) Get(ctx context.Context, entityID, versionID uuid.UUID) (*types.ContentVersion, error) {
	v, err := l.versions.GetByID(dbctx.Context{Ctx: ctx}, versionID)
	if err != nil {
		return nil, err
	}
	if v == nil || v.EntityID != entityID {
		return nil, fmt.Errorf("version %s of entity %s: %w", versionID, entityID, types.ErrNotFound)
	}
	return v, nil
}

// Current returns the current version, or nil before the first save.
func (l *Log) Current(ctx context.Context, entityID uuid.UUID) (*types.ContentVersion, error) {
	return l.versions.GetCurrent(dbctx.Context{Ctx: ctx}, entityID)
}
