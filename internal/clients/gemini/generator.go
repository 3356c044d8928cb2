// Package gemini adapts Google's Gemini API to llm.Generator. Web-augmented
// requests run with Google Search grounding and report the grounding pages as
// sources and external citations.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/httpx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

const Provider = "google"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration
	Temperature float32
	Prices      llm.PriceTable
}

// ConfigFromEnv reads GEMINI_* settings.
func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("GEMINI_API_KEY", envutil.String("GOOGLE_API_KEY", "")),
		BaseURL:     envutil.String("GEMINI_BASE_URL", ""),
		Model:       envutil.String("GEMINI_MODEL", "gemini-2.5-flash"),
		Timeout:     envutil.Duration("GEMINI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:  envutil.Int("GEMINI_MAX_RETRIES", 3),
		Backoff:     envutil.Duration("GEMINI_RETRY_BACKOFF", time.Second),
		Temperature: float32(envutil.Float("GEMINI_TEMPERATURE", 0.2)),
	}
}

type Generator struct {
	log        *logger.Logger
	client     *genai.Client
	model      string
	maxRetries int
	backoff    time.Duration
	temp       float32
	prices     llm.PriceTable
	now        func() time.Time
}

func NewGenerator(ctx context.Context, baseLog *logger.Logger, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	prices := cfg.Prices
	if prices == nil {
		prices = llm.DefaultPrices
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Generator{
		log:        baseLog.With("client", "GeminiGenerator"),
		client:     client,
		model:      model,
		maxRetries: retries,
		backoff:    cfg.Backoff,
		temp:       cfg.Temperature,
		prices:     prices,
		now:        time.Now,
	}, nil
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (any, error) {
	system, user, err := llm.Prompt(req)
	if err != nil {
		return nil, err
	}
	temp := g.temp
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
	}
	if req.WebAugmented {
		// The search tool cannot be combined with a JSON response MIME type.
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else {
		cfg.ResponseMIMEType = "application/json"
	}
	if user == "" {
		user = "Begin."
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	resp, err := g.generateWithRetry(ctx, contents, cfg)
	if err != nil {
		return nil, err
	}
	return g.envelope(resp)
}

func (g *Generator) generateWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		err = statusError(err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !httpx.IsRetryableError(err) || attempt >= g.maxRetries {
			return nil, fmt.Errorf("%w: gemini: %w", types.ErrGenerationFailed, err)
		}
		sleepFor := httpx.Backoff(err, backoff, 10*time.Second)
		g.log.Warn("Gemini request retrying",
			"model", g.model,
			"attempt", attempt+1,
			"max_retries", g.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (g *Generator) envelope(resp *genai.GenerateContentResponse) (map[string]any, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", types.ErrGenerationFailed)
	}
	model := resp.ModelVersion
	if model == "" {
		model = g.model
	}
	var usage llm.Usage
	if um := resp.UsageMetadata; um != nil {
		usage.PromptTokens = int(um.PromptTokenCount)
		usage.CompletionTokens = int(um.CandidatesTokenCount + um.ThoughtsTokenCount)
	}
	usage.Cost = g.prices.Cost(model, usage.PromptTokens, usage.CompletionTokens)

	env := llm.Envelope(resp.Text(), model, Provider, usage, g.now())
	if pages := groundingPages(resp.Candidates[0]); len(pages) > 0 {
		sources := make([]any, 0, len(pages))
		external := make([]any, 0, len(pages))
		for _, p := range pages {
			sources = append(sources, map[string]any{"url": p.URI, "title": p.Title})
			external = append(external, p.URI)
		}
		env["sources"] = sources
		env["external_citations"] = external
	}
	return env, nil
}

func groundingPages(c *genai.Candidate) []*genai.GroundingChunkWeb {
	if c == nil || c.GroundingMetadata == nil {
		return nil
	}
	var out []*genai.GroundingChunkWeb
	seen := map[string]bool{}
	for _, ch := range c.GroundingMetadata.GroundingChunks {
		if ch == nil || ch.Web == nil || ch.Web.URI == "" || seen[ch.Web.URI] {
			continue
		}
		seen[ch.Web.URI] = true
		out = append(out, ch.Web)
	}
	return out
}

func statusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &httpx.StatusError{Status: apiErr.Code, Err: err}
	}
	return err
}
