package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
)

func SeedEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.ContentEntity {
	tb.Helper()
	e := &types.ContentEntity{
		ID:                 uuid.New(),
		Title:              title,
		Status:             types.StatusDraft,
		Specialty:          "cardiology",
		FullText:           "Full text for " + title,
		LearningObjectives: datatypes.JSONSlice[string]{},
		Sources:            datatypes.JSONSlice[string]{},
		Warnings:           datatypes.JSONSlice[string]{},
		SourcePack:         datatypes.NewJSONType(types.SourcePack{}),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entity: %v", err)
	}
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
