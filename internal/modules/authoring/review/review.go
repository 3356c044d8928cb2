// Package review runs the critic over a piece of content and normalizes whatever
// the critic returns into a ReviewReport. It never reads or writes entity state.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

// Reviewer returns the critic's raw response for content written in mode.
type Reviewer interface {
	Review(ctx context.Context, content, specialty string, mode modes.Mode) (any, error)
}

// GeneratorReviewer asks a generator for a review_critic response.
type GeneratorReviewer struct {
	gen llm.Generator
}

func NewGeneratorReviewer(gen llm.Generator) *GeneratorReviewer {
	return &GeneratorReviewer{gen: gen}
}

func (r *GeneratorReviewer) Review(ctx context.Context, content, specialty string, mode modes.Mode) (any, error) {
	return r.gen.Generate(ctx, llm.Request{
		Mode: modes.ReviewCritic,
		Context: llm.GenerationContext{
			Specialty:    specialty,
			ExistingText: content,
			ContentKind:  string(mode),
		},
	})
}

type Runner struct {
	log        *logger.Logger
	reviewer   Reviewer
	normalizer *Normalizer
}

func NewRunner(baseLog *logger.Logger, reviewer Reviewer, primaryProvider string) *Runner {
	return &Runner{
		log:        baseLog.With("service", "ReviewRunner"),
		reviewer:   reviewer,
		normalizer: NewNormalizer(primaryProvider),
	}
}

// RunReview reviews content produced by mode. Empty content fails before the
// reviewer is called.
func (r *Runner) RunReview(ctx context.Context, content, specialty string, mode modes.Mode) (*types.ReviewReport, error) {
	if _, err := modes.Lookup(mode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: review requires content", types.ErrPreconditionFailed)
	}

	raw, err := r.reviewer.Review(ctx, content, specialty, mode)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, types.ErrGenerationFailed) {
			err = fmt.Errorf("%w: review: %w", types.ErrGenerationFailed, err)
		}
		return nil, err
	}

	rep, err := r.normalizer.Normalize(raw)
	if err != nil {
		r.log.Warn("Review response unusable", "mode", mode, "error", err)
		return nil, err
	}
	if rep.HasSeverity(types.SeverityHigh) {
		r.log.Warn("Review found high severity issues", "mode", mode, "issues", len(rep.Issues))
	}
	return rep, nil
}
