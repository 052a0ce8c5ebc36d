package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/data/db"
	internalhttp "github.com/borealisconf/borealis-backend/internal/http"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *internalhttp.Server

	metrics      *observability.Metrics
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "borealis-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	repos := wireRepos(theDB, log)
	serviceSet, err := wireServices(theDB, log, cfg, repos, clients)
	if err != nil {
		log.Sync()
		return nil, err
	}

	if err := serviceSet.Account.EnsureAdmin(ctx); err != nil {
		log.Warn("admin bootstrap failed (continuing)", "error", err)
	}

	handlers := wireHandlers(theDB, log, cfg, serviceSet, clients)
	middleware := wireMiddleware(log, serviceSet)
	server := wireServer(log, metrics, handlers, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        repos,
		Services:     serviceSet,
		Server:       server,
		metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background machinery: the outbox worker, the cron
// sweeps, and the metrics server with its collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Services.Mail.StartWorker(ctx)
	a.Services.Cron.Start(ctx)

	if a.metrics != nil {
		a.metrics.StartServer(ctx, a.Log, envutil.Str("METRICS_ADDR", ":9091"))
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.metrics.StartOutboxCollector(ctx, a.Log, a.DB)
		a.metrics.StartCartCollector(ctx, a.Log, a.DB)
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			a.metrics.StartRedisCollector(ctx, a.Log, addr)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Shutdown drains in-flight requests and stops background work.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	}
	a.Services.Cron.Stop()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(flushCtx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Clients.Cache != nil {
		_ = a.Clients.Cache.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
