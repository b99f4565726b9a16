package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/vipplay/contentgen/internal/api"
	"github.com/vipplay/contentgen/internal/api/middleware"
	"github.com/vipplay/contentgen/internal/config"
	"github.com/vipplay/contentgen/internal/generation"
	"github.com/vipplay/contentgen/internal/platform/gemini"
	"github.com/vipplay/contentgen/internal/platform/metrics"
	"github.com/vipplay/contentgen/internal/platform/ollama"
	"github.com/vipplay/contentgen/internal/platform/postgres"
	"github.com/vipplay/contentgen/internal/router"
	"github.com/vipplay/contentgen/internal/scheduler"
	"github.com/vipplay/contentgen/internal/service"
	"github.com/vipplay/contentgen/internal/service/auth"
	"github.com/vipplay/contentgen/migrations"
)

// application holds the wired components of the server process.
type application struct {
	cfg      *config.Config
	db       *sql.DB
	queue    *scheduler.QueueManager
	cron     *cron.Cron
	registry *prometheus.Registry
	handler  http.Handler
}

// newApplication connects the database, runs migrations, and wires stores,
// services, scheduler, and HTTP handlers.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	jobStore := postgres.NewJobStore(db)
	groupStore := postgres.NewModelGroupStore(db)
	configStore := postgres.NewConfigurationStore(db)

	ollamaClient, err := ollama.NewClient(ollama.Options{
		BaseURL:     cfg.Backend.OllamaBaseURL,
		Timeout:     time.Duration(cfg.Backend.OllamaTimeoutSeconds) * time.Second,
		Temperature: cfg.Backend.Temperature,
		MaxTokens:   cfg.Backend.MaxTokens,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	generators := map[string]generation.Generator{
		ollama.Prefix: ollamaClient,
	}
	probers := map[string]generation.Prober{
		ollama.Prefix: ollamaClient,
	}
	if cfg.Backend.GeminiAPIKey != "" {
		geminiGen, err := gemini.NewGenerator(ctx, cfg.Backend.GeminiAPIKey, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini generator: %w", err)
		}
		generators[gemini.Prefix] = geminiGen
		probers[gemini.Prefix] = geminiGen
	}

	mux, err := generation.NewMux(generators)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	modelRouter := router.New(groupStore, cfg.Scheduler.DefaultModelGroup, slog.Default())
	executor := scheduler.NewExecutor(mux, modelRouter, jobStore, m,
		cfg.Scheduler.TaskConcurrency,
		time.Duration(cfg.Scheduler.TaskTimeoutSeconds)*time.Second)
	queue := scheduler.NewQueueManager(jobStore, groupStore, executor, m,
		cfg.Scheduler.MaxArticles, slog.Default())

	groupService := service.NewModelGroupService(groupStore, slog.Default())
	backendService := service.NewBackendService(ollamaClient, probers,
		cfg.Backend.GeminiModels, slog.Default())
	configService := service.NewConfigService(groupStore, configStore, slog.Default())

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetimeMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	jobHandler := api.NewJobHandler(queue, slog.Default())
	groupHandler := api.NewModelGroupHandler(groupService, slog.Default())
	backendHandler := api.NewBackendHandler(backendService, slog.Default())
	configHandler := api.NewConfigHandler(configService, slog.Default())

	c := cron.New()
	if _, err := c.AddFunc(cfg.Scheduler.StuckSweepSchedule, func() {
		if err := queue.RecoverStuck(context.Background()); err != nil {
			slog.Error("stuck job sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid stuck sweep schedule: %w", err)
	}

	handler := buildRouter(routerDeps{
		cfg:      cfg,
		auth:     authMiddleware,
		jobs:     jobHandler,
		groups:   groupHandler,
		backends: backendHandler,
		config:   configHandler,
		registry: registry,
		db:       db,
	})

	return &application{
		cfg:      cfg,
		db:       db,
		queue:    queue,
		cron:     c,
		registry: registry,
		handler:  handler,
	}, nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Run starts the dispatcher, the cron sweep, and the HTTP server, then blocks
// until ctx is cancelled and shuts everything down.
func (a *application) Run(ctx context.Context) error {
	defer func() { _ = a.db.Close() }()

	go func() {
		if err := a.queue.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("dispatcher stopped with error", "error", err)
		}
	}()
	a.cron.Start()
	defer a.cron.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
