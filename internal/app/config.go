package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-authoring/internal/clients/gemini"
	"github.com/yungbote/neurobridge-authoring/internal/clients/openai"
	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string

	// SQLitePath switches persistence from Postgres to a local SQLite file.
	SQLitePath  string
	PostgresDSN string

	PrimaryProvider  string
	FallbackProvider string

	CacheEnabled bool
	CacheTTL     time.Duration

	AllowedOrigins []string

	OpenAI openai.Config
	Gemini gemini.Config
	Prices llm.PriceTable
}

// fileConfig is the YAML overlay read from CONTENT_CONFIG_FILE. Only keys that
// are present override the environment.
type fileConfig struct {
	ServiceName      *string        `yaml:"service_name"`
	Environment      *string        `yaml:"environment"`
	Port             *string        `yaml:"port"`
	SQLitePath       *string        `yaml:"sqlite_path"`
	PrimaryProvider  *string        `yaml:"primary_provider"`
	FallbackProvider *string        `yaml:"fallback_provider"`
	AllowedOrigins   []string       `yaml:"allowed_origins"`
	Cache            *cacheFile     `yaml:"cache"`
	OpenAI           *providerFile  `yaml:"openai"`
	Gemini           *providerFile  `yaml:"gemini"`
	Prices           llm.PriceTable `yaml:"prices"`
}

type cacheFile struct {
	Enabled *bool          `yaml:"enabled"`
	TTL     *time.Duration `yaml:"ttl"`
}

type providerFile struct {
	Model       *string        `yaml:"model"`
	BaseURL     *string        `yaml:"base_url"`
	Timeout     *time.Duration `yaml:"timeout"`
	MaxRetries  *int           `yaml:"max_retries"`
	Temperature *float32       `yaml:"temperature"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		ServiceName:      envutil.String("SERVICE_NAME", "neurobridge-authoring"),
		Environment:      envutil.String("APP_ENV", "development"),
		Version:          envutil.String("APP_VERSION", "dev"),
		Port:             envutil.String("PORT", "8080"),
		SQLitePath:       envutil.String("SQLITE_PATH", ""),
		PostgresDSN:      envutil.String("POSTGRES_DSN", ""),
		PrimaryProvider:  strings.ToLower(envutil.String("LLM_PROVIDER", openai.Provider)),
		FallbackProvider: strings.ToLower(envutil.String("LLM_FALLBACK_PROVIDER", "")),
		CacheEnabled:     envutil.Bool("GENERATION_CACHE_ENABLED", true),
		CacheTTL:         envutil.Duration("GENERATION_CACHE_TTL_SECONDS", 24*time.Hour),
		AllowedOrigins:   splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		OpenAI:           openai.ConfigFromEnv(),
		Gemini:           gemini.ConfigFromEnv(),
		Prices:           llm.DefaultPrices.Merge(nil),
	}

	if path := envutil.String("CONTENT_CONFIG_FILE", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := cfg.overlay(b); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Config overlay loaded", "path", path)
		}
	}

	cfg.OpenAI.Prices = cfg.Prices
	cfg.Gemini.Prices = cfg.Prices
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(b []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(b, &f); err != nil {
		return err
	}
	setString(&c.ServiceName, f.ServiceName)
	setString(&c.Environment, f.Environment)
	setString(&c.Port, f.Port)
	setString(&c.SQLitePath, f.SQLitePath)
	setString(&c.PrimaryProvider, f.PrimaryProvider)
	setString(&c.FallbackProvider, f.FallbackProvider)
	if len(f.AllowedOrigins) > 0 {
		c.AllowedOrigins = f.AllowedOrigins
	}
	if f.Cache != nil {
		if f.Cache.Enabled != nil {
			c.CacheEnabled = *f.Cache.Enabled
		}
		if f.Cache.TTL != nil {
			c.CacheTTL = *f.Cache.TTL
		}
	}
	if f.OpenAI != nil {
		f.OpenAI.apply(&c.OpenAI.Model, &c.OpenAI.BaseURL, &c.OpenAI.Timeout, &c.OpenAI.MaxRetries, &c.OpenAI.Temperature)
	}
	if f.Gemini != nil {
		f.Gemini.apply(&c.Gemini.Model, &c.Gemini.BaseURL, &c.Gemini.Timeout, &c.Gemini.MaxRetries, &c.Gemini.Temperature)
	}
	if len(f.Prices) > 0 {
		c.Prices = c.Prices.Merge(f.Prices)
	}
	return nil
}

func (p *providerFile) apply(model, baseURL *string, timeout *time.Duration, retries *int, temp *float32) {
	setString(model, p.Model)
	setString(baseURL, p.BaseURL)
	if p.Timeout != nil {
		*timeout = *p.Timeout
	}
	if p.MaxRetries != nil {
		*retries = *p.MaxRetries
	}
	if p.Temperature != nil {
		*temp = *p.Temperature
	}
}

func (c Config) validate() error {
	for _, p := range []string{c.PrimaryProvider, c.FallbackProvider} {
		switch p {
		case "", openai.Provider, gemini.Provider, "none":
		default:
			return fmt.Errorf("unknown llm provider %q", p)
		}
	}
	if c.FallbackProvider != "" && c.FallbackProvider == c.PrimaryProvider {
		return fmt.Errorf("fallback provider must differ from primary %q", c.PrimaryProvider)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
