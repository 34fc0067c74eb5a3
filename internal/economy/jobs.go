package economy

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DistributeUBI empties the pool equally across all accounts, flooring the
// per-account payout to whole cents. The undistributable remainder stays in
// the pool for the next run. The whole job is one transaction; a run that
// would overlap a still-active one is skipped.
func (s *Service) DistributeUBI(ctx context.Context) (UBIReport, error) {
	var out UBIReport
	if !s.ubiMu.TryLock() {
		return out, nil
	}
	defer s.ubiMu.Unlock()

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		pool, err := lockPool(ctx, tx)
		if err != nil {
			return err
		}
		if !pool.IsPositive() {
			return nil
		}
		var count int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM econ.accounts`).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		payout, distributed, remainder := splitUBI(pool, count)
		if !payout.IsPositive() {
			// Pool too small for this population; let it keep accruing.
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE econ.accounts
			SET balance = balance + $1::NUMERIC, updated_at = now()
		`, payout.String()); err != nil {
			return err
		}
		if err := setPool(ctx, tx, remainder); err != nil {
			return err
		}

		out = UBIReport{
			Accounts:      count,
			PayoutPerUser: payout,
			Distributed:   distributed,
			Remainder:     remainder,
		}
		return nil
	})
	if err != nil {
		s.log.Error("ubi distribution rolled back", "err", err)
		return UBIReport{}, err
	}
	if out.Accounts > 0 {
		s.log.Info("ubi distributed",
			"accounts", out.Accounts,
			"payout_per_user", out.PayoutPerUser.String(),
			"remainder", out.Remainder.String())
	}
	return out, nil
}

// CollectWealthTax skims WealthTaxRate off every positive balance into the
// pool, each account paying proportionally to its balance at transaction
// start. One transaction; overlapping runs are skipped.
func (s *Service) CollectWealthTax(ctx context.Context) (WealthTaxReport, error) {
	var out WealthTaxReport
	if !s.taxMu.TryLock() {
		return out, nil
	}
	defer s.taxMu.Unlock()

	rate := s.params.WealthTaxRate
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		var liquidityStr, taxStr string
		var taxed int64
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(balance), 0)::text,
			       COALESCE(SUM(ROUND(balance * $1::NUMERIC, 6)), 0)::text,
			       COUNT(*)
			FROM econ.accounts
			WHERE balance > 0
		`, rate.String()).Scan(&liquidityStr, &taxStr, &taxed); err != nil {
			return err
		}
		liquidity, err := decimal.NewFromString(liquidityStr)
		if err != nil {
			return err
		}
		if !liquidity.IsPositive() {
			return nil
		}
		totalTax, err := decimal.NewFromString(taxStr)
		if err != nil {
			return err
		}

		// The deduction below rounds per account exactly like the SUM
		// above, so the pool credit matches what accounts give up.
		if _, err := tx.Exec(ctx, `
			UPDATE econ.accounts
			SET balance = balance - ROUND(balance * $1::NUMERIC, 6), updated_at = now()
			WHERE balance > 0
		`, rate.String()); err != nil {
			return err
		}
		if err := addToPoolTx(ctx, tx, totalTax); err != nil {
			return err
		}

		out = WealthTaxReport{TaxedAccounts: taxed, TotalLiquidity: liquidity, TotalTax: totalTax}
		return nil
	})
	if err != nil {
		s.log.Error("wealth tax rolled back", "err", err)
		return WealthTaxReport{}, err
	}
	if out.TaxedAccounts > 0 {
		s.log.Info("wealth tax collected",
			"accounts", out.TaxedAccounts,
			"total_tax", out.TotalTax.String())
	}
	return out, nil
}
