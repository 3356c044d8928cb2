package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/data/db"
	apphttp "github.com/yungbote/neurobridge-authoring/internal/http"
	"github.com/yungbote/neurobridge-authoring/internal/observability"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// Options override configuration for embedded use (the CLI, tests).
type Options struct {
	LogMode    string
	SQLitePath string
	// Offline skips LLM and Redis clients.
	Offline bool
}

func New(ctx context.Context, opts Options) (*App, error) {
	logMode := opts.LogMode
	if logMode == "" {
		logMode = os.Getenv("LOG_MODE")
	}
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.SQLitePath != "" {
		cfg.SQLitePath = opts.SQLitePath
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	store, err := openStore(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := store.DB()

	var clients Clients
	if !opts.Offline {
		clients, err = wireClients(ctx, log, cfg)
		if err != nil {
			_ = store.Close()
			log.Sync()
			return nil, err
		}
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	server := wireServer(theDB, log, cfg, serviceset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

func openStore(log *logger.Logger, cfg Config) (*db.Service, error) {
	if cfg.SQLitePath != "" {
		s, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s, nil
	}
	s, err := db.NewPostgresService(log, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	return s, nil
}

// Start launches background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
