package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/httpx"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

const Provider = "openai"

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

// ConfigFromEnv reads OPENAI_* settings.
func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("OPENAI_API_KEY", ""),
		BaseURL:     envutil.String("OPENAI_BASE_URL", ""),
		Model:       envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:     envutil.Duration("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 4),
		Backoff:     envutil.Duration("OPENAI_RETRY_BACKOFF", time.Second),
		Temperature: float32(envutil.Float("OPENAI_TEMPERATURE", 0.2)),
	}
}

// Generator calls the chat completions API in JSON mode and returns the reply
// wrapped in an llm.Envelope.
type Generator struct {
	log        *logger.Logger
	client     *goopenai.Client
	model      string
	maxRetries int
	backoff    time.Duration
	temp       float32
	prices     llm.PriceTable
	now        func() time.Time
}

func NewGenerator(baseLog *logger.Logger, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		oc.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
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
		log:        baseLog.With("client", "OpenAIGenerator"),
		client:     goopenai.NewClientWithConfig(oc),
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
	creq := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: g.temp,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := g.createWithRetry(ctx, creq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", types.ErrGenerationFailed)
	}
	model := resp.Model
	if model == "" {
		model = g.model
	}
	usage := llm.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	usage.Cost = g.prices.Cost(model, usage.PromptTokens, usage.CompletionTokens)
	return llm.Envelope(resp.Choices[0].Message.Content, model, Provider, usage, g.now()), nil
}

func (g *Generator) createWithRetry(ctx context.Context, creq goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return goopenai.ChatCompletionResponse{}, err
		}
		resp, err := g.client.CreateChatCompletion(ctx, creq)
		if err == nil {
			return resp, nil
		}
		err = statusError(err)
		if !httpx.IsRetryableError(err) || attempt >= g.maxRetries || ctx.Err() != nil {
			if ctx.Err() != nil {
				return goopenai.ChatCompletionResponse{}, ctx.Err()
			}
			return goopenai.ChatCompletionResponse{}, fmt.Errorf("%w: openai: %w", types.ErrGenerationFailed, err)
		}

		sleepFor := httpx.Backoff(err, backoff, 10*time.Second)
		g.log.Warn("OpenAI request retrying",
			"model", creq.Model,
			"attempt", attempt+1,
			"max_retries", g.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return goopenai.ChatCompletionResponse{}, err
		}
		backoff *= 2
	}
}

// statusError lifts the SDK's status-bearing errors into httpx.StatusError.
func statusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &httpx.StatusError{Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &httpx.StatusError{Status: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}
