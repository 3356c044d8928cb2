package authoring

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
)

func TestContentEntityRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewContentEntityRepo(db, testutil.Logger(t))

	e := &types.ContentEntity{
		Title:              "Heart failure",
		FullText:           "Body",
		LearningObjectives: datatypes.JSONSlice[string]{"Define HF"},
		SourcePack:         datatypes.NewJSONType(types.SourcePack{InternalRefs: []string{"ch-1"}}),
	}
	if _, err := repo.Create(dbc, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == uuid.Nil || e.Status != types.StatusDraft {
		t.Fatalf("Create defaults: id=%v status=%q", e.ID, e.Status)
	}

	got, err := repo.GetByID(dbc, e.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Title != "Heart failure" || len(got.LearningObjectives) != 1 || got.Pack().InternalRefs[0] != "ch-1" {
		t.Fatalf("GetByID: unexpected row %+v", got)
	}
	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%v err=%v", missing, err)
	}
	if locked, err := repo.GetForUpdate(dbc, e.ID); err != nil || locked == nil || locked.ID != e.ID {
		t.Fatalf("GetForUpdate: got=%v err=%v", locked, err)
	}

	got.HighYield = "- A"
	got.DeepDive = ""
	got.LastCost = 0
	if err := repo.Update(dbc, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(dbc, e.ID)
	if again.HighYield != "- A" || again.FullText != "Body" {
		t.Fatalf("Update: unexpected row %+v", again)
	}
	if err := repo.Update(dbc, &types.ContentEntity{ID: uuid.New(), Title: "ghost"}); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("Update missing: want ErrNotFound, got %v", err)
	}

	ok, err := repo.UpdateStatus(dbc, e.ID, types.StatusDraft, types.StatusInReview)
	if err != nil || !ok {
		t.Fatalf("UpdateStatus: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateStatus(dbc, e.ID, types.StatusDraft, types.StatusPublished)
	if err != nil || ok {
		t.Fatalf("UpdateStatus stale from: ok=%v err=%v", ok, err)
	}

	testutil.SeedEntity(t, ctx, tx, "Asthma")
	if rows, err := repo.List(dbc, types.StatusDraft, 10); err != nil || len(rows) != 1 {
		t.Fatalf("List draft: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.List(dbc, "", 0); err != nil || len(rows) != 2 {
		t.Fatalf("List all: err=%v len=%d", err, len(rows))
	}
}
