// mctl is the operator CLI for the moolah economy. It talks to the
// database directly, so it needs the same DATABASE_URL the services use.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"moolah/internal/activity"
	"moolah/internal/config"
	"moolah/internal/db"
	"moolah/internal/economy"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func main() {
	root := &cobra.Command{
		Use:          "mctl",
		Short:        "Moolah economy operator CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newPoolCmd(),
		newBalanceCmd(),
		newGrantCmd(),
		newTopCmd(),
		newMoversCmd(),
		newStockCmd(),
		newJobsCmd(),
	)

	if err := root.Execute(); err != nil {
		danger.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withService connects, runs fn, and tears the pool down again. Operator
// commands are one-shot, so no connection reuse is needed.
func withService(cmd *cobra.Command, fn func(ctx context.Context, econ *economy.Service) error) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return fn(ctx, economy.NewService(pool, activity.NewReader(pool), cfg.Economy, logger))
}

func newPoolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "Show the community pool balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				amount, err := econ.GetPoolAmount(ctx)
				if err != nil {
					return err
				}
				accent.Printf("community pool: %s\n", amount.StringFixed(2))
				return nil
			})
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account_id>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				balance, err := econ.GetBalance(ctx, args[0])
				if err != nil {
					return err
				}
				neutral.Printf("%s: %s\n", args[0], balance.StringFixed(2))
				return nil
			})
		},
	}
}

func newGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-pool <amount>",
		Short: "Add money to the community pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				if err := econ.AddToPool(ctx, amount); err != nil {
					return err
				}
				total, err := econ.GetPoolAmount(ctx)
				if err != nil {
					return err
				}
				success.Printf("added %s, pool now %s\n", amount.StringFixed(2), total.StringFixed(2))
				return nil
			})
		},
	}
}

func newTopCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the net worth leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				rows, err := econ.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range rows {
					neutral.Printf("%3d. %-24s net %12s  cash %12s\n",
						r.Rank, r.AccountID, r.NetWorth.StringFixed(2), r.Balance.StringFixed(2))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func newMoversCmd() *cobra.Command {
	var losers bool
	var limit int
	cmd := &cobra.Command{
		Use:   "movers",
		Short: "Show today's biggest price moves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				rows, err := econ.TopMovers(ctx, !losers, limit)
				if err != nil {
					return err
				}
				for _, r := range rows {
					style := success
					if r.DailyChangePct.IsNegative() {
						style = danger
					}
					style.Printf("%s/%s  %s (%s%%)\n",
						r.EntityKind, r.EntityID, r.Price.StringFixed(2), r.DailyChangePct.StringFixed(2))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&losers, "losers", false, "show losers instead of gainers")
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func newStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock <account|group|channel> <entity_id>",
		Short: "Show (or lazily create) a stock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := economy.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				asset, err := econ.GetOrCreateStock(ctx, kind, args[1])
				if err != nil {
					return err
				}
				accent.Printf("%s/%s (id %d)\n", asset.EntityKind, asset.EntityID, asset.ID)
				neutral.Printf("price %s  prev %s  change %s%%  reprice minute %d\n",
					asset.Price.StringFixed(2), asset.PreviousPrice.StringFixed(2),
					asset.DailyChangePct.StringFixed(2), asset.UpdateTimeMinutes)
				return nil
			})
		},
	}
}

func newJobsCmd() *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Run periodic jobs once",
	}
	jobs.AddCommand(&cobra.Command{
		Use:   "ubi",
		Short: "Distribute the pool as UBI now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				report, err := econ.DistributeUBI(ctx)
				if err != nil {
					return err
				}
				success.Printf("distributed %s to %d accounts (%s each, remainder %s)\n",
					report.Distributed.StringFixed(2), report.Accounts,
					report.PayoutPerUser.StringFixed(2), report.Remainder.StringFixed(2))
				return nil
			})
		},
	})
	jobs.AddCommand(&cobra.Command{
		Use:   "wealth-tax",
		Short: "Collect the wealth tax now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				report, err := econ.CollectWealthTax(ctx)
				if err != nil {
					return err
				}
				success.Printf("taxed %d accounts, %s moved to the pool\n",
					report.TaxedAccounts, report.TotalTax.StringFixed(2))
				return nil
			})
		},
	})
	jobs.AddCommand(&cobra.Command{
		Use:   "reprice",
		Short: "Run the stock pricing pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, econ *economy.Service) error {
				n, err := econ.UpdateStockPrices(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				success.Printf("repriced %d assets\n", n)
				return nil
			})
		},
	})
	return jobs
}
