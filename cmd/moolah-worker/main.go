package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moolah/internal/activity"
	"moolah/internal/config"
	"moolah/internal/db"
	"moolah/internal/economy"
	"moolah/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
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

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("MOOLAH_WORKER_RUN_ONCE")), "true")
	if runOnce {
		runUBI(ctx, econ, logger)
		runWealthTax(ctx, econ, logger)
		runPriceTick(ctx, econ, logger)
		logger.Info("worker run-once completed")
		return
	}

	ubiTicker := time.NewTicker(cfg.UBIEvery)
	defer ubiTicker.Stop()
	taxTicker := time.NewTicker(cfg.WealthTaxEvery)
	defer taxTicker.Stop()
	priceTicker := time.NewTicker(cfg.PriceTickEvery)
	defer priceTicker.Stop()

	logger.Info("worker started",
		"ubi_every", cfg.UBIEvery.String(),
		"wealth_tax_every", cfg.WealthTaxEvery.String(),
		"price_tick_every", cfg.PriceTickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ubiTicker.C:
			runUBI(ctx, econ, logger)
		case <-taxTicker.C:
			runWealthTax(ctx, econ, logger)
		case <-priceTicker.C:
			runPriceTick(ctx, econ, logger)
		}
	}
}

func runUBI(ctx context.Context, econ *economy.Service, logger *slog.Logger) {
	report, err := econ.DistributeUBI(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues("ubi", "error").Inc()
		logger.Error("ubi distribution failed", "err", err)
		return
	}
	metrics.JobRunsTotal.WithLabelValues("ubi", "ok").Inc()
	logger.Info("ubi distributed",
		"accounts", report.Accounts,
		"per_user", report.PayoutPerUser.String(),
		"distributed", report.Distributed.String())
}

func runWealthTax(ctx context.Context, econ *economy.Service, logger *slog.Logger) {
	report, err := econ.CollectWealthTax(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues("wealth_tax", "error").Inc()
		logger.Error("wealth tax failed", "err", err)
		return
	}
	metrics.JobRunsTotal.WithLabelValues("wealth_tax", "ok").Inc()
	logger.Info("wealth tax collected",
		"accounts", report.TaxedAccounts,
		"total_tax", report.TotalTax.String())
	if amount, err := econ.GetPoolAmount(ctx); err == nil {
		f, _ := amount.Float64()
		metrics.PoolAmount.Set(f)
	}
}

func runPriceTick(ctx context.Context, econ *economy.Service, logger *slog.Logger) {
	n, err := econ.UpdateStockPrices(ctx, time.Now().UTC())
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues("price_tick", "error").Inc()
		logger.Error("price tick failed", "err", err)
		return
	}
	metrics.JobRunsTotal.WithLabelValues("price_tick", "ok").Inc()
	metrics.AssetsRepriced.Add(float64(n))
	if n > 0 {
		logger.Info("stock prices updated", "assets", n)
	}
}
