package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"newsrelay/internal/bot"
	"newsrelay/internal/config"
	"newsrelay/internal/ingest"
	"newsrelay/internal/publish"
	"newsrelay/internal/rewrite"
	"newsrelay/internal/scheduler"
	"newsrelay/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	ingester := ingest.NewRunner(store, httpClient, log)

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, ingester, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	engine := rewrite.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, &http.Client{Timeout: 2 * time.Minute})
	dispatcher := rewrite.NewDispatcher(store, engine, log)

	publisher := publish.New(store, publish.NewTelegramSender(b.API()), log)

	sched := scheduler.New(store, ingester, dispatcher, publisher, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot")

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
