package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"moolah/internal/activity"
	"moolah/internal/bot"
	"moolah/internal/config"
	"moolah/internal/db"
	"moolah/internal/economy"
	"moolah/internal/slots"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if cfg.DiscordToken == "" {
		slog.Error("MOOLAH_DISCORD_TOKEN is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	econ := economy.NewService(pool, activity.NewReader(pool), cfg.Economy, logger)
	b, err := bot.New(cfg.DiscordToken, cfg.CommandPrefix, econ, slots.NewMachine(), logger)
	if err != nil {
		logger.Error("bot init failed", "err", err)
		os.Exit(1)
	}
	if err := b.Open(); err != nil {
		logger.Error("bot connect failed", "err", err)
		os.Exit(1)
	}

	logger.Info("bot connected", "prefix", cfg.CommandPrefix)
	<-ctx.Done()
	logger.Info("bot shutdown")
	_ = b.Close()
}
