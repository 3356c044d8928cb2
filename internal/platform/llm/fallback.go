package llm

import (
	"context"
	"errors"
	"fmt"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type fallback struct {
	log       *logger.Logger
	primary   Generator
	secondary Generator
}

// NewFallback tries primary and, when it fails, secondary. A response served by
// secondary is marked with fallback=true. A nil secondary returns primary as is.
func NewFallback(baseLog *logger.Logger, primary, secondary Generator) Generator {
	if secondary == nil {
		return primary
	}
	return &fallback{log: baseLog.With("service", "FallbackGenerator"), primary: primary, secondary: secondary}
}

func (f *fallback) Generate(ctx context.Context, req Request) (any, error) {
	raw, err := f.primary.Generate(ctx, req)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.log.Warn("Primary generator failed, falling back", "mode", req.Mode, "error", err)

	raw, err2 := f.secondary.Generate(ctx, req)
	if err2 != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrGenerationFailed, errors.Join(err, err2))
	}
	return markFallback(raw), nil
}

func markFallback(raw any) any {
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+1)
		for k, val := range v {
			out[k] = val
		}
		out["fallback"] = true
		return out
	case string:
		return map[string]any{"content": v, "fallback": true}
	}
	return raw
}
