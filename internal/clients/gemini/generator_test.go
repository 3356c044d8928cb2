package gemini

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/resolve"
	"github.com/yungbote/neurobridge-authoring/internal/platform/httpx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

func testGenerator() *Generator {
	return &Generator{
		model:  "gemini-2.5-flash",
		prices: llm.DefaultPrices,
		now:    func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestEnvelopeCarriesGrounding(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		ModelVersion: "gemini-2.5-flash",
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText("```json\n{\"full_text\": \"Body\", \"confidence\": 0.9}\n```", genai.RoleModel),
			GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
				{Web: &genai.GroundingChunkWeb{URI: "https://guidelines.org/hf", Title: "HF guideline"}},
				{Web: &genai.GroundingChunkWeb{URI: "https://guidelines.org/hf", Title: "dup"}},
				{},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 1_000_000, CandidatesTokenCount: 1_000_000},
	}

	env, err := testGenerator().envelope(resp)
	require.NoError(t, err)

	spec, err := modes.Lookup(modes.FullText)
	require.NoError(t, err)
	res, err := resolve.New("openai").Resolve(env, spec)
	require.NoError(t, err)

	assert.Equal(t, "Body", res.Text)
	assert.Equal(t, types.ConfidenceHigh, res.Confidence.Level)
	assert.Equal(t, "google", res.Metadata.Provider)
	assert.Equal(t, "gemini-2.5-flash", res.Metadata.Model)
	assert.InDelta(t, 0.30+2.50, res.Metadata.Cost.Total, 1e-9)
	assert.Equal(t, []string{"https://guidelines.org/hf"}, res.Sources)
	assert.Equal(t, []string{"https://guidelines.org/hf"}, res.Citations.External)
}

func TestEnvelopeWithoutCandidates(t *testing.T) {
	_, err := testGenerator().envelope(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, types.ErrGenerationFailed)
}

func TestStatusError(t *testing.T) {
	err := statusError(fmt.Errorf("call: %w", genai.APIError{Code: 503, Message: "overloaded"}))
	assert.True(t, httpx.IsRetryableError(err))

	err = statusError(genai.APIError{Code: 400})
	assert.False(t, httpx.IsRetryableError(err))
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	log, err := logger.New("test")
	require.NoError(t, err)
	_, err = NewGenerator(context.Background(), log, Config{})
	assert.Error(t, err)
}
