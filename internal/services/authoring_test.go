package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos"
	"github.com/yungbote/neurobridge-authoring/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
)

type authoringFixture struct {
	svc      AuthoringService
	versions repos.ContentVersionRepo
	calls    atomic.Int32
	last     llm.Request
}

func newAuthoringFixture(t *testing.T, respond func(llm.Request) (any, error)) *authoringFixture {
	t.Helper()
	db := testutil.DB(t)
	lg := testutil.Logger(t)
	f := &authoringFixture{versions: repos.NewContentVersionRepo(db, lg)}
	var gen llm.Generator
	if respond != nil {
		gen = llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (any, error) {
			f.calls.Add(1)
			f.last = req
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return respond(req)
		})
	}
	f.svc = NewAuthoringService(db, lg, AuthoringDeps{
		Entities:        repos.NewContentEntityRepo(db, lg),
		Versions:        f.versions,
		Generator:       gen,
		PrimaryProvider: "openai",
		Metrics:         observability.New(),
	})
	return f
}

func (f *authoringFixture) create(t *testing.T, fullText string) *types.ContentEntity {
	t.Helper()
	e, err := f.svc.CreateEntity(context.Background(), CreateEntityInput{
		Title:     "Heart failure",
		Specialty: "cardiology",
		FullText:  fullText,
	})
	require.NoError(t, err)
	return e
}

func reply(v any) func(llm.Request) (any, error) {
	return func(llm.Request) (any, error) { return v, nil }
}

func TestCreateEntityDoesNotMintVersion(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "")

	assert.Equal(t, types.StatusDraft, e.Status)
	vs, err := f.svc.ListVersions(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, vs)

	_, err = f.svc.CreateEntity(context.Background(), CreateEntityInput{Title: "  "})
	assert.ErrorIs(t, err, types.ErrPreconditionFailed)
}

func TestSaveUsesDefaultReason(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "Body")
	e.FullText = "Edited body"

	res, err := f.svc.Save(context.Background(), e, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSaveReason, res.Version.ChangeReason)
	assert.Equal(t, 1, res.Version.VersionNumber)
	assert.True(t, res.Version.IsCurrent)
	assert.Equal(t, "Edited body", res.Entity.FullText)
}

func TestSaveFieldsKeepsConcurrentMerge(t *testing.T) {
	f := newAuthoringFixture(t, reply(map[string]any{"high_yield": "- A\n- B"}))
	e := f.create(t, "Body")
	ctx := context.Background()

	stale, err := f.svc.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, e.ID, modes.HighYield, GenerateInput{})
	require.NoError(t, err)

	edited := "Edited body"
	stale.FullText = edited
	res, err := f.svc.SaveFields(ctx, e.ID, FieldPatch{FullText: &edited}, "")
	require.NoError(t, err)

	assert.Equal(t, "Edited body", res.Entity.FullText)
	assert.Equal(t, "- A\n- B", res.Entity.HighYield)
	assert.Equal(t, DefaultSaveReason, res.Version.ChangeReason)
	assert.Equal(t, 2, res.Version.VersionNumber)

	got, err := f.svc.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "- A\n- B", got.HighYield)
	assert.Equal(t, "Edited body", got.FullText)
}

func TestSaveFieldsValidation(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "Body")
	ctx := context.Background()

	blank := " "
	_, err := f.svc.SaveFields(ctx, e.ID, FieldPatch{Title: &blank}, "")
	assert.ErrorIs(t, err, types.ErrPreconditionFailed)

	body := "x"
	_, err = f.svc.SaveFields(ctx, uuid.New(), FieldPatch{FullText: &body}, "")
	assert.ErrorIs(t, err, types.ErrNotFound)

	objectives := []string{"Define HF"}
	res, err := f.svc.SaveFields(ctx, e.ID, FieldPatch{LearningObjectives: &objectives}, "objectives")
	require.NoError(t, err)
	assert.Equal(t, []string{"Define HF"}, []string(res.Entity.LearningObjectives))
	assert.Equal(t, "Body", res.Entity.FullText)
	assert.Equal(t, "Heart failure", res.Entity.Title)
}

func TestGenerateRechecksPreconditionUnderLock(t *testing.T) {
	var f *authoringFixture
	var id uuid.UUID
	f = newAuthoringFixture(t, func(llm.Request) (any, error) {
		empty := ""
		if _, err := f.svc.SaveFields(context.Background(), id, FieldPatch{FullText: &empty}, "cleared"); err != nil {
			return nil, err
		}
		return map[string]any{"high_yield": "- A"}, nil
	})
	id = f.create(t, "Body").ID

	_, err := f.svc.Generate(context.Background(), id, modes.HighYield, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrPreconditionFailed)

	got, err := f.svc.GetEntity(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got.HighYield)
	vs, err := f.svc.ListVersions(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "cleared", vs[0].ChangeReason)
}

func TestGeneratePreconditionSkipsProvider(t *testing.T) {
	f := newAuthoringFixture(t, reply(map[string]any{"high_yield": "- A"}))
	e := f.create(t, "")

	_, err := f.svc.Generate(context.Background(), e.ID, modes.HighYield, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrPreconditionFailed)
	assert.Zero(t, f.calls.Load())
}

func TestGenerateMergesScopedFieldAndSnapshots(t *testing.T) {
	f := newAuthoringFixture(t, reply(map[string]any{
		"content":    "```json\n{\"high_yield\": \"- A\\n- B\"}\n```",
		"confidence": "high",
		"citations":  []any{"ch-3", "https://guideline.org"},
		"metadata":   map[string]any{"model": "gpt-4o-mini", "cost": map[string]any{"total": 0.01}},
	}))
	e := f.create(t, "Body")

	out, err := f.svc.Generate(context.Background(), e.ID, modes.HighYield, GenerateInput{})
	require.NoError(t, err)
	require.NotNil(t, out.Entity)
	require.NotNil(t, out.Version)

	assert.Equal(t, "- A\n- B", out.Entity.HighYield)
	assert.Equal(t, "Body", out.Entity.FullText)
	assert.Equal(t, []string{"ch-3"}, out.Entity.Pack().InternalRefs)
	assert.Equal(t, []string{"https://guideline.org"}, out.Entity.Pack().ExternalRefs)
	assert.Equal(t, "AI generation: high_yield", out.Version.ChangeReason)
	assert.Equal(t, "gpt-4o-mini", out.Version.AIModel)
	assert.Equal(t, "high", out.Version.AIConfidence)
	assert.Empty(t, out.Notices)

	assert.Equal(t, modes.HighYield, f.last.Mode)
	assert.False(t, f.last.WebAugmented)
	assert.Equal(t, "Body", f.last.Context.ExistingText)
}

func TestGenerateMissingPayloadLeavesDraft(t *testing.T) {
	f := newAuthoringFixture(t, reply(`{"summary_of_something_else": "x"}`))
	e := f.create(t, "Body")

	_, err := f.svc.Generate(context.Background(), e.ID, modes.DeepDive, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrMissingPayload)

	got, err := f.svc.GetEntity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DeepDive)
	vs, err := f.svc.ListVersions(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestGenerateDegradedParseIsNotice(t *testing.T) {
	f := newAuthoringFixture(t, reply(`{"full_text": "Heart failure is`))
	e := f.create(t, "")

	out, err := f.svc.Generate(context.Background(), e.ID, modes.FullText, GenerateInput{})
	require.NoError(t, err)
	assert.Equal(t, "Heart failure is", out.Entity.FullText)
	require.Len(t, out.Notices, 1)
	assert.Contains(t, out.Notices[0], "parse degraded")
	assert.True(t, f.last.WebAugmented)
}

func TestGenerateNonMutatingModeCreatesNoSnapshot(t *testing.T) {
	f := newAuthoringFixture(t, reply(map[string]any{"answer": "B is correct"}))
	e := f.create(t, "")

	out, err := f.svc.Generate(context.Background(), e.ID, modes.ExamAnswer, GenerateInput{DisableWeb: true})
	require.NoError(t, err)
	assert.Equal(t, "B is correct", out.Result.Text)
	assert.Nil(t, out.Entity)
	assert.Nil(t, out.Version)
	assert.Equal(t, "Heart failure", f.last.Context.Question)
	assert.False(t, f.last.WebAugmented)

	vs, err := f.svc.ListVersions(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestGenerateFailureAndCancellation(t *testing.T) {
	f := newAuthoringFixture(t, func(llm.Request) (any, error) { return nil, errors.New("upstream 500") })
	e := f.create(t, "Body")

	_, err := f.svc.Generate(context.Background(), e.ID, modes.Simplify, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrGenerationFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.Generate(ctx, e.ID, modes.Simplify, GenerateInput{})
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.svc.GetEntity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Body", got.FullText)
}

func TestGenerateWithoutGenerator(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "Body")
	_, err := f.svc.Generate(context.Background(), e.ID, modes.Quiz, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrGenerationFailed)

	_, err = f.svc.Generate(context.Background(), uuid.New(), modes.Quiz, GenerateInput{})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = f.svc.Generate(context.Background(), e.ID, modes.Mode("poem"), GenerateInput{})
	assert.ErrorIs(t, err, types.ErrUnknownMode)
}

func TestApplyGenerationReviewRoutesToNormalizer(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "Body")

	out, err := f.svc.ApplyGeneration(context.Background(), e.ID, modes.ReviewCritic, map[string]any{
		"approved":       true,
		"safety_score":   140,
		"issues":         []any{map[string]any{"severity": "critical", "description": "Wrong dose"}},
		"missing_fields": []any{},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Review)
	assert.False(t, out.Review.Approved)
	assert.Equal(t, 100.0, out.Review.SafetyScore)
	assert.Nil(t, out.Version)
}

func TestReviewUsesModeTarget(t *testing.T) {
	var seen string
	f := newAuthoringFixture(t, func(req llm.Request) (any, error) {
		seen = req.Context.ExistingText
		return map[string]any{"approved": true, "issues": []any{}}, nil
	})
	e := f.create(t, "Body")

	rep, err := f.svc.Review(context.Background(), e.ID, modes.DeepDive)
	require.NoError(t, err)
	assert.True(t, rep.Approved)
	assert.Equal(t, "Body", seen)
}

func TestRestoreDoesNotMintVersion(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "v1")

	first, err := f.svc.Save(context.Background(), e, "first")
	require.NoError(t, err)
	e.FullText = "v2"
	_, err = f.svc.Save(context.Background(), e, "second")
	require.NoError(t, err)

	res, err := f.svc.Restore(context.Background(), e.ID, first.Version.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Entity.FullText)

	vs, err := f.svc.ListVersions(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	cur, err := f.svc.CurrentVersion(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version.ID, cur.ID)
}

func TestTransitionStatus(t *testing.T) {
	f := newAuthoringFixture(t, nil)
	e := f.create(t, "Body")
	ctx := context.Background()

	_, err := f.svc.TransitionStatus(ctx, e.ID, types.StatusPublished)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	got, err := f.svc.TransitionStatus(ctx, e.ID, types.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInReview, got.Status)

	got, err = f.svc.TransitionStatus(ctx, e.ID, types.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, got.Status)

	list, err := f.svc.ListEntities(ctx, types.StatusPublished, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
}
