package authoring

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
)

func TestContentVersionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewContentVersionRepo(db, testutil.Logger(t))
	e := testutil.SeedEntity(t, ctx, tx, "Heart failure")

	if n, err := repo.MaxVersionNumber(dbc, e.ID); err != nil || n != 0 {
		t.Fatalf("MaxVersionNumber empty: n=%d err=%v", n, err)
	}

	var ids []uuid.UUID
	for i := 1; i <= 3; i++ {
		if err := repo.ClearCurrent(dbc, e.ID); err != nil {
			t.Fatalf("ClearCurrent: %v", err)
		}
		v := &types.ContentVersion{EntityID: e.ID, VersionNumber: i, Title: e.Title, ChangeReason: "edit", IsCurrent: true}
		if err := repo.Create(dbc, v); err != nil {
			t.Fatalf("Create v%d: %v", i, err)
		}
		ids = append(ids, v.ID)
	}

	if n, err := repo.MaxVersionNumber(dbc, e.ID); err != nil || n != 3 {
		t.Fatalf("MaxVersionNumber: n=%d err=%v", n, err)
	}
	rows, err := repo.ListByEntityID(dbc, e.ID)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListByEntityID: err=%v len=%d", err, len(rows))
	}
	if rows[0].VersionNumber != 3 || rows[2].VersionNumber != 1 {
		t.Fatalf("ListByEntityID order: %d..%d", rows[0].VersionNumber, rows[2].VersionNumber)
	}
	if cur, err := repo.GetCurrent(dbc, e.ID); err != nil || cur == nil || cur.ID != ids[2] {
		t.Fatalf("GetCurrent: got=%v err=%v", cur, err)
	}

	dup := &types.ContentVersion{EntityID: e.ID, VersionNumber: 2, Title: e.Title, ChangeReason: "race"}
	if err := repo.Create(dbc, dup); !errors.Is(err, types.ErrVersionConflict) {
		t.Fatalf("Create duplicate: want ErrVersionConflict, got %v", err)
	}
}

func TestContentVersionRepoSetCurrent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewContentVersionRepo(db, testutil.Logger(t))
	e := testutil.SeedEntity(t, ctx, tx, "Heart failure")
	other := testutil.SeedEntity(t, ctx, tx, "Asthma")

	v1 := &types.ContentVersion{EntityID: e.ID, VersionNumber: 1, Title: e.Title, ChangeReason: "a"}
	v2 := &types.ContentVersion{EntityID: e.ID, VersionNumber: 2, Title: e.Title, ChangeReason: "b", IsCurrent: true}
	for _, v := range []*types.ContentVersion{v1, v2} {
		if err := repo.Create(dbc, v); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := repo.SetCurrent(dbc, e.ID, v1.ID); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	rows, _ := repo.ListByEntityID(dbc, e.ID)
	current := 0
	for _, r := range rows {
		if r.IsCurrent {
			current++
			if r.ID != v1.ID {
				t.Fatalf("SetCurrent: wrong current %v", r.ID)
			}
		}
	}
	if current != 1 {
		t.Fatalf("SetCurrent: %d current rows", current)
	}

	if err := repo.SetCurrent(dbc, other.ID, v2.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("SetCurrent foreign: want ErrNotFound, got %v", err)
	}
	if got, err := repo.GetByID(dbc, v2.ID); err != nil || got == nil || got.IsCurrent {
		t.Fatalf("GetByID v2: got=%v err=%v", got, err)
	}
}
