package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moolah/internal/economy"
)

type Config struct {
	Addr        string
	DatabaseURL string

	UBIEvery       time.Duration
	WealthTaxEvery time.Duration
	PriceTickEvery time.Duration

	DiscordToken  string
	CommandPrefix string

	Economy economy.Params
}

func LoadFromEnv() (Config, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MOOLAH_API_ADDR", ":8080")
	}

	cfg := Config{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		UBIEvery:       envDurationDefault("MOOLAH_UBI_EVERY", 6*time.Hour),
		WealthTaxEvery: envDurationDefault("MOOLAH_WEALTH_TAX_EVERY", time.Hour),
		PriceTickEvery: envDurationDefault("MOOLAH_PRICE_TICK_EVERY", time.Minute),
		DiscordToken:   strings.TrimSpace(os.Getenv("MOOLAH_DISCORD_TOKEN")),
		CommandPrefix:  envDefault("MOOLAH_COMMAND_PREFIX", "$"),
		Economy:        economyParamsFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func economyParamsFromEnv() economy.Params {
	p := economy.DefaultParams()
	p.BuyFeeRate = envDecimalDefault("MOOLAH_BUY_FEE_RATE", p.BuyFeeRate)
	p.SellProfitTaxRate = envDecimalDefault("MOOLAH_SELL_PROFIT_TAX_RATE", p.SellProfitTaxRate)
	p.TransferFeeRate = envDecimalDefault("MOOLAH_TRANSFER_FEE_RATE", p.TransferFeeRate)
	p.WealthTaxRate = envDecimalDefault("MOOLAH_WEALTH_TAX_RATE", p.WealthTaxRate)
	p.StartingBalance = envDecimalDefault("MOOLAH_STARTING_BALANCE", p.StartingBalance)
	p.InitialPrice = envDecimalDefault("MOOLAH_INITIAL_PRICE", p.InitialPrice)
	p.PriceFloor = envDecimalDefault("MOOLAH_PRICE_FLOOR", p.PriceFloor)
	p.PriceSmoothing = envDecimalDefault("MOOLAH_PRICE_SMOOTHING", p.PriceSmoothing)
	p.ChangeClampPct = envDecimalDefault("MOOLAH_CHANGE_CLAMP_PCT", p.ChangeClampPct)
	p.MinBet = envDecimalDefault("MOOLAH_MIN_BET", p.MinBet)
	p.MaxBet = envDecimalDefault("MOOLAH_MAX_BET", p.MaxBet)
	p.PriceBatchSize = envIntDefault("MOOLAH_PRICE_BATCH_SIZE", p.PriceBatchSize)
	return p
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDecimalDefault(key string, fallback decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback
	}
	return d
}
