package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/data/repos"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/draft"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/resolve"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/review"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/versions"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

// DefaultSaveReason is recorded when an author saves without giving a reason.
const DefaultSaveReason = "Manual edit"

type CreateEntityInput struct {
	Title         string   `json:"title"`
	Specialty     string   `json:"specialty"`
	ParentSection string   `json:"parent_section"`
	FullText      string   `json:"full_text"`
	HighYield     string   `json:"high_yield"`
	DeepDive      string   `json:"deep_dive"`
	Objectives    []string `json:"learning_objectives"`
}

// FieldPatch is a partial author edit. Nil fields keep their stored value.
type FieldPatch struct {
	Title              *string   `json:"title"`
	Specialty          *string   `json:"specialty"`
	ParentSection      *string   `json:"parent_section"`
	FullText           *string   `json:"full_text"`
	HighYield          *string   `json:"high_yield"`
	DeepDive           *string   `json:"deep_dive"`
	LearningObjectives *[]string `json:"learning_objectives"`
}

func (p FieldPatch) applyTo(e *types.ContentEntity) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&e.Title, p.Title)
	set(&e.Specialty, p.Specialty)
	set(&e.ParentSection, p.ParentSection)
	set(&e.FullText, p.FullText)
	set(&e.HighYield, p.HighYield)
	set(&e.DeepDive, p.DeepDive)
	if p.LearningObjectives != nil {
		e.LearningObjectives = datatypes.JSONSlice[string](append([]string{}, (*p.LearningObjectives)...))
	}
}

// GenerateInput carries the caller-supplied parts of a generation request.
type GenerateInput struct {
	Question string `json:"question"`
	// DisableWeb turns off web augmentation for modes that allow it.
	DisableWeb bool `json:"disable_web"`
}

// GenerationOutcome is what one generate/apply call produced. Entity, Version and
// Integrity are set only when the mode changed the draft; Review only for
// review_critic.
type GenerationOutcome struct {
	Mode      modes.Mode              `json:"mode"`
	Result    *types.GenerationResult `json:"result"`
	Entity    *types.ContentEntity    `json:"entity,omitempty"`
	Version   *types.ContentVersion   `json:"version,omitempty"`
	Integrity *types.IntegrityReport  `json:"integrity,omitempty"`
	Review    *types.ReviewReport     `json:"review,omitempty"`
	Notices   []string                `json:"notices"`
}

type AuthoringService interface {
	CreateEntity(ctx context.Context, in CreateEntityInput) (*types.ContentEntity, error)
	GetEntity(ctx context.Context, id uuid.UUID) (*types.ContentEntity, error)
	ListEntities(ctx context.Context, status types.Status, limit int) ([]*types.ContentEntity, error)
	Save(ctx context.Context, entity *types.ContentEntity, changeReason string) (*versions.Result, error)
	SaveFields(ctx context.Context, id uuid.UUID, patch FieldPatch, changeReason string) (*versions.Result, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to types.Status) (*types.ContentEntity, error)

	Generate(ctx context.Context, id uuid.UUID, mode modes.Mode, in GenerateInput) (*GenerationOutcome, error)
	ApplyGeneration(ctx context.Context, id uuid.UUID, mode modes.Mode, raw any) (*GenerationOutcome, error)

	ListVersions(ctx context.Context, id uuid.UUID) ([]*types.ContentVersion, error)
	GetVersion(ctx context.Context, id, versionID uuid.UUID) (*types.ContentVersion, error)
	CurrentVersion(ctx context.Context, id uuid.UUID) (*types.ContentVersion, error)
	Restore(ctx context.Context, id, versionID uuid.UUID) (*versions.Result, error)

	Review(ctx context.Context, id uuid.UUID, mode modes.Mode) (*types.ReviewReport, error)
}

type AuthoringDeps struct {
	Entities        repos.ContentEntityRepo
	Versions        repos.ContentVersionRepo
	Generator       llm.Generator
	Reviewer        review.Reviewer
	PrimaryProvider string
	Metrics         *observability.Metrics
}

type authoringService struct {
	db         *gorm.DB
	log        *logger.Logger
	entities   repos.ContentEntityRepo
	versionLog *versions.Log
	generator  llm.Generator
	resolver   *resolve.Resolver
	reviews    *review.Runner
	normalizer *review.Normalizer
	metrics    *observability.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewAuthoringService(db *gorm.DB, baseLog *logger.Logger, deps AuthoringDeps) AuthoringService {
	reviewer := deps.Reviewer
	if reviewer == nil && deps.Generator != nil {
		reviewer = review.NewGeneratorReviewer(deps.Generator)
	}
	s := &authoringService{
		db:         db,
		log:        baseLog.With("service", "AuthoringService"),
		entities:   deps.Entities,
		versionLog: versions.NewLog(db, baseLog, deps.Entities, deps.Versions),
		generator:  deps.Generator,
		resolver:   resolve.New(deps.PrimaryProvider),
		normalizer: review.NewNormalizer(deps.PrimaryProvider),
		metrics:    deps.Metrics,
		tracer:     observability.Tracer(),
		now:        time.Now,
	}
	if reviewer != nil {
		s.reviews = review.NewRunner(baseLog, reviewer, deps.PrimaryProvider)
	}
	return s
}

func (s *authoringService) CreateEntity(ctx context.Context, in CreateEntityInput) (*types.ContentEntity, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", types.ErrPreconditionFailed)
	}
	objectives := datatypes.JSONSlice[string]{}
	for _, o := range in.Objectives {
		if o = strings.TrimSpace(o); o != "" {
			objectives = append(objectives, o)
		}
	}
	e := &types.ContentEntity{
		ID:                 uuid.New(),
		Title:              title,
		Status:             types.StatusDraft,
		Specialty:          strings.TrimSpace(in.Specialty),
		ParentSection:      strings.TrimSpace(in.ParentSection),
		FullText:           in.FullText,
		HighYield:          in.HighYield,
		DeepDive:           in.DeepDive,
		LearningObjectives: objectives,
		SourcePack:         datatypes.NewJSONType(types.SourcePack{InternalRefs: []string{}, ExternalRefs: []string{}}),
		Sources:            datatypes.JSONSlice[string]{},
		Warnings:           datatypes.JSONSlice[string]{},
	}
	created, err := s.entities.Create(dbctx.Context{Ctx: ctx}, e)
	if err != nil {
		return nil, fmt.Errorf("create content entity: %w", err)
	}
	s.log.Info("Content entity created", append(ctxutil.LogFields(ctx), "entity_id", created.ID, "title", created.Title)...)
	return created, nil
}

func (s *authoringService) GetEntity(ctx context.Context, id uuid.UUID) (*types.ContentEntity, error) {
	e, err := s.entities.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("content entity %s: %w", id, types.ErrNotFound)
	}
	return e, nil
}

func (s *authoringService) ListEntities(ctx context.Context, status types.Status, limit int) ([]*types.ContentEntity, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrInvalidTransition, status)
	}
	return s.entities.List(dbctx.Context{Ctx: ctx}, status, limit)
}

// Save records the submitted draft as the next version.
func (s *authoringService) Save(ctx context.Context, entity *types.ContentEntity, changeReason string) (*versions.Result, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.Save")
	defer span.End()

	if entity == nil || entity.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: save requires an entity id", types.ErrPreconditionFailed)
	}
	if strings.TrimSpace(entity.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", types.ErrPreconditionFailed)
	}
	reason := strings.TrimSpace(changeReason)
	if reason == "" {
		reason = DefaultSaveReason
	}
	span.SetAttributes(attribute.String("entity_id", entity.ID.String()))

	res, err := s.versionLog.CreateVersion(ctx, entity, types.SnapshotMeta{}, reason)
	if err != nil {
		return nil, spanError(span, err)
	}
	s.afterCommit("save", res)
	return res, nil
}

// SaveFields applies patch to the locked draft and records the result as the next
// version. Fields the patch leaves nil are taken from the stored row, including
// merges committed after the caller last read the entity.
func (s *authoringService) SaveFields(ctx context.Context, id uuid.UUID, patch FieldPatch, changeReason string) (*versions.Result, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.SaveFields", trace.WithAttributes(
		attribute.String("entity_id", id.String()),
	))
	defer span.End()

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, spanError(span, fmt.Errorf("%w: title is required", types.ErrPreconditionFailed))
	}
	reason := strings.TrimSpace(changeReason)
	if reason == "" {
		reason = DefaultSaveReason
	}

	res, err := s.versionLog.Commit(ctx, id, reason, types.SnapshotMeta{}, func(next *types.ContentEntity) error {
		patch.applyTo(next)
		return nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	s.afterCommit("save", res)
	return res, nil
}

func (s *authoringService) TransitionStatus(ctx context.Context, id uuid.UUID, to types.Status) (*types.ContentEntity, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrInvalidTransition, to)
	}
	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, e.Status, to)
	}
	ok, err := s.entities.UpdateStatus(dbc, id, e.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: status of %s changed concurrently", types.ErrInvalidTransition, id)
	}
	s.log.Info("Content status changed", append(ctxutil.LogFields(ctx), "entity_id", id, "from", e.Status, "to", to)...)
	return s.GetEntity(ctx, id)
}

// Generate checks the mode's preconditions, calls the generator, and applies the
// response. A failed or cancelled call leaves the draft untouched.
func (s *authoringService) Generate(ctx context.Context, id uuid.UUID, mode modes.Mode, in GenerateInput) (*GenerationOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.Generate", trace.WithAttributes(
		attribute.String("entity_id", id.String()),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	spec, err := modes.Lookup(mode)
	if err != nil {
		return nil, spanError(span, err)
	}
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := modes.Check(spec, e); err != nil {
		return nil, spanError(span, err)
	}
	if s.generator == nil {
		return nil, spanError(span, fmt.Errorf("%w: no generator configured", types.ErrGenerationFailed))
	}

	req := llm.Request{
		Mode:         spec.Mode,
		Context:      generationContext(spec, e, in),
		WebAugmented: spec.WebAugmented && !in.DisableWeb,
	}
	start := s.now()
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		outcome := "error"
		if ctx.Err() != nil {
			err = ctx.Err()
			outcome = "cancelled"
		} else if !errors.Is(err, types.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", types.ErrGenerationFailed, err)
		}
		s.metrics.ObserveGeneration(string(mode), "", outcome, time.Since(start))
		s.log.Warn("Generation failed", append(ctxutil.LogFields(ctx), "entity_id", id, "mode", mode, "error", err)...)
		return nil, spanError(span, err)
	}

	out, err := s.apply(ctx, e, spec, raw)
	if err != nil {
		s.metrics.ObserveGeneration(string(mode), "", "unusable", time.Since(start))
		return nil, spanError(span, err)
	}
	s.metrics.ObserveGeneration(string(mode), out.Result.Metadata.Provider, "ok", time.Since(start))
	return out, nil
}

// ApplyGeneration normalizes a response obtained elsewhere and applies it as
// Generate would.
func (s *authoringService) ApplyGeneration(ctx context.Context, id uuid.UUID, mode modes.Mode, raw any) (*GenerationOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.ApplyGeneration", trace.WithAttributes(
		attribute.String("entity_id", id.String()),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	spec, err := modes.Lookup(mode)
	if err != nil {
		return nil, spanError(span, err)
	}
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := modes.Check(spec, e); err != nil {
		return nil, spanError(span, err)
	}
	out, err := s.apply(ctx, e, spec, raw)
	if err != nil {
		return nil, spanError(span, err)
	}
	return out, nil
}

func (s *authoringService) apply(ctx context.Context, e *types.ContentEntity, spec modes.Spec, raw any) (*GenerationOutcome, error) {
	if spec.Mode == modes.ReviewCritic {
		return s.applyReview(ctx, e, spec, raw)
	}

	res, err := s.resolver.Resolve(raw, spec)
	if err != nil {
		s.log.Warn("Generation response unusable", append(ctxutil.LogFields(ctx), "entity_id", e.ID, "mode", spec.Mode, "error", err)...)
		return nil, err
	}
	s.metrics.ObserveParse(string(spec.Mode), res.Parse.Strategy, res.Parse.Degraded)
	s.metrics.ObserveCache(res.Cache.Hit)
	s.metrics.AddGenerationCost(res.Metadata.Model, res.Metadata.Cost.Total)

	out := &GenerationOutcome{Mode: spec.Mode, Result: res, Notices: []string{}}
	if res.Parse.Degraded {
		notice := fmt.Sprintf("%v: %s payload recovered by %s", types.ErrParseDegraded, spec.Key, res.Parse.Strategy)
		out.Notices = append(out.Notices, notice)
		s.log.Warn("Generation payload degraded", append(ctxutil.LogFields(ctx), "entity_id", e.ID, "mode", spec.Mode, "strategy", res.Parse.Strategy)...)
	}
	if !spec.Mutates() {
		return out, nil
	}

	meta := types.SnapshotMeta{
		Model:      res.Metadata.Model,
		Confidence: res.Confidence.Level,
		Cost:       res.Metadata.Cost.Total,
	}
	committed, err := s.versionLog.Commit(ctx, e.ID, spec.ChangeReason(), meta, func(next *types.ContentEntity) error {
		// The draft may have changed since the unlocked read.
		if err := modes.Check(spec, next); err != nil {
			return err
		}
		return draft.ApplyResult(next, spec, res)
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit("generation", committed)
	out.Entity = committed.Entity
	out.Version = committed.Version
	out.Integrity = &committed.Integrity
	return out, nil
}

func (s *authoringService) applyReview(ctx context.Context, e *types.ContentEntity, spec modes.Spec, raw any) (*GenerationOutcome, error) {
	rep, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	s.metrics.IncReview(string(spec.Mode), rep.Approved)
	s.log.Info("Review recorded", append(ctxutil.LogFields(ctx), "entity_id", e.ID, "approved", rep.Approved, "issues", len(rep.Issues))...)
	res := &types.GenerationResult{
		BodyVariantKey: spec.Key,
		Structured:     rep,
		Confidence:     types.Confidence{Level: rep.Confidence},
		Citations:      types.Citations{Internal: []string{}, External: []string{}},
		Warnings:       []string{},
		Sources:        []string{},
		Metadata:       types.GenerationMetadata{Model: rep.Metadata.Model, Cost: types.Cost{Total: rep.Metadata.Cost}},
	}
	return &GenerationOutcome{Mode: spec.Mode, Result: res, Review: rep, Notices: []string{}}, nil
}

func (s *authoringService) ListVersions(ctx context.Context, id uuid.UUID) ([]*types.ContentVersion, error) {
	return s.versionLog.List(ctx, id)
}

func (s *authoringService) GetVersion(ctx context.Context, id, versionID uuid.UUID) (*types.ContentVersion, error) {
	return s.versionLog.Get(ctx, id, versionID)
}

func (s *authoringService) CurrentVersion(ctx context.Context, id uuid.UUID) (*types.ContentVersion, error) {
	return s.versionLog.Current(ctx, id)
}

func (s *authoringService) Restore(ctx context.Context, id, versionID uuid.UUID) (*versions.Result, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.Restore", trace.WithAttributes(
		attribute.String("entity_id", id.String()),
		attribute.String("version_id", versionID.String()),
	))
	defer span.End()

	res, err := s.versionLog.Restore(ctx, id, versionID)
	if err != nil {
		return nil, spanError(span, err)
	}
	s.metrics.IncVersion("restore")
	return res, nil
}

// Review runs the critic over the entity's text for mode. It never changes the entity.
func (s *authoringService) Review(ctx context.Context, id uuid.UUID, mode modes.Mode) (*types.ReviewReport, error) {
	ctx, span := s.tracer.Start(ctx, "authoring.Review", trace.WithAttributes(
		attribute.String("entity_id", id.String()),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	if s.reviews == nil {
		return nil, spanError(span, fmt.Errorf("%w: no reviewer configured", types.ErrGenerationFailed))
	}
	spec, err := modes.Lookup(mode)
	if err != nil {
		return nil, spanError(span, err)
	}
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	rep, err := s.reviews.RunReview(ctx, reviewText(spec, e), e.Specialty, mode)
	if err != nil {
		return nil, spanError(span, err)
	}
	s.metrics.IncReview(string(mode), rep.Approved)
	return rep, nil
}

func (s *authoringService) afterCommit(kind string, res *versions.Result) {
	s.metrics.IncVersion(kind)
	for _, f := range res.Integrity.Fields {
		if f.Shrunk {
			s.metrics.IncShrink(string(f.Field))
		}
	}
}

func generationContext(spec modes.Spec, e *types.ContentEntity, in GenerateInput) llm.GenerationContext {
	c := llm.GenerationContext{
		Specialty:     e.Specialty,
		ParentSection: e.ParentSection,
		Title:         e.Title,
		Question:      strings.TrimSpace(in.Question),
	}
	switch spec.Mode {
	case modes.FullText:
		c.ExistingText = e.FullText
	case modes.ExamAnswer:
		if c.Question == "" {
			c.Question = e.Title
		}
	default:
		c.ExistingText = e.FullText
	}
	return c
}

// reviewText picks the body a mode produced; modes without a text target are
// reviewed against the full text.
func reviewText(spec modes.Spec, e *types.ContentEntity) string {
	if spec.Target != "" {
		if t := e.Text(spec.Target); strings.TrimSpace(t) != "" {
			return t
		}
	}
	return e.FullText
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
