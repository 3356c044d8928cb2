package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-authoring/internal/clients/gemini"
	"github.com/yungbote/neurobridge-authoring/internal/clients/openai"
	"github.com/yungbote/neurobridge-authoring/internal/clients/redis"
	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type Clients struct {
	// Generator is nil when no provider is configured; generation then fails
	// with ErrGenerationFailed while apply, save and restore keep working.
	Generator llm.Generator
	Redis     *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	primary, err := newGenerator(ctx, log, cfg, cfg.PrimaryProvider)
	if err != nil {
		return Clients{}, err
	}
	secondary, err := newGenerator(ctx, log, cfg, cfg.FallbackProvider)
	if err != nil {
		return Clients{}, err
	}
	if primary == nil {
		primary, secondary = secondary, nil
	}
	if primary == nil {
		log.Warn("No LLM provider configured; generation is disabled")
		return Clients{}, nil
	}

	out := Clients{Generator: llm.NewFallback(log, primary, secondary)}

	// Redis
	if cfg.CacheEnabled && envutil.String("REDIS_ADDR", "") != "" {
		rdb, err := redis.NewClient(ctx)
		if err != nil {
			log.Warn("Generation cache disabled", "error", err)
		} else {
			out.Redis = rdb
			out.Generator = redis.NewCachedGenerator(log, rdb, out.Generator, cfg.CacheTTL)
		}
	}
	return out, nil
}

// newGenerator builds the adapter for provider. A provider without credentials
// is skipped with a warning rather than failing startup.
func newGenerator(ctx context.Context, log *logger.Logger, cfg Config, provider string) (llm.Generator, error) {
	switch provider {
	case "", "none":
		return nil, nil
	case openai.Provider:
		if cfg.OpenAI.APIKey == "" {
			log.Warn("OpenAI provider selected without OPENAI_API_KEY")
			return nil, nil
		}
		g, err := openai.NewGenerator(log, cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("init openai generator: %w", err)
		}
		return g, nil
	case gemini.Provider:
		if cfg.Gemini.APIKey == "" {
			log.Warn("Gemini provider selected without GEMINI_API_KEY")
			return nil, nil
		}
		g, err := gemini.NewGenerator(ctx, log, cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("init gemini generator: %w", err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", provider)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
