// Package llm defines the provider-neutral generation contract used by the
// authoring service and implemented by the adapters under internal/clients/llm.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
)

// GenerationContext is what the provider is told about the section being written.
type GenerationContext struct {
	Specialty     string `json:"specialty,omitempty"`
	ParentSection string `json:"parent_section,omitempty"`
	Title         string `json:"title,omitempty"`
	ExistingText  string `json:"existing_text,omitempty"`
	Question      string `json:"question,omitempty"`
	// ContentKind names the mode that produced the text under review.
	ContentKind   string `json:"content_kind,omitempty"`
}

type Request struct {
	Mode         modes.Mode        `json:"mode"`
	Context      GenerationContext `json:"context"`
	WebAugmented bool              `json:"web_augmented"`
}

// Key is a stable digest of the request, used for caching.
func (r Request) Key() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Generator returns the provider's raw response. The shape is deliberately loose;
// callers run it through resolve.Resolver.
type Generator interface {
	Generate(ctx context.Context, req Request) (any, error)
}

type GeneratorFunc func(ctx context.Context, req Request) (any, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Envelope wraps provider text with the provenance fields the resolver reads.
func Envelope(content, model, provider string, usage Usage, at time.Time) map[string]any {
	return map[string]any{
		"content": content,
		"metadata": map[string]any{
			"model":        model,
			"provider":     provider,
			"generated_at": at.UTC().Format(time.RFC3339Nano),
			"cost":         map[string]any{"total": usage.Cost},
		},
		"usage": map[string]any{
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
		},
	}
}
