// Package main implements the entry point for the content generation API
// server: job scheduling, model routing, and backend administration.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vipplay/contentgen/internal/config"
	"github.com/vipplay/contentgen/internal/platform/logger"
)

func main() {
	// A missing .env file is fine; real deployments set env vars directly.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Server.LogLevel)
	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"task_concurrency", cfg.Scheduler.TaskConcurrency,
		"max_articles", cfg.Scheduler.MaxArticles)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
