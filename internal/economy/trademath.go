package economy

import "github.com/shopspring/decimal"

type buyBreakdown struct {
	Fee      decimal.Decimal
	Invested decimal.Decimal
	Shares   decimal.Decimal
}

func computeBuy(amount, price, feeRate decimal.Decimal) buyBreakdown {
	fee := amount.Mul(feeRate).Round(moneyScale)
	invested := amount.Sub(fee)
	return buyBreakdown{
		Fee:      fee,
		Invested: invested,
		Shares:   invested.DivRound(price, shareScale),
	}
}

type sellBreakdown struct {
	CostBasis decimal.Decimal
	Gross     decimal.Decimal
	Profit    decimal.Decimal
	Tax       decimal.Decimal
	Net       decimal.Decimal

	RemainingShares   decimal.Decimal
	RemainingInvested decimal.Decimal
}

// computeSell attributes cost basis to the sold shares proportionally, so
// liquidating the whole position removes the basis exactly, and taxes only
// positive profit. Residual dust below shareEpsilon snaps to zero.
func computeSell(held, invested, toSell, price, taxRate decimal.Decimal) sellBreakdown {
	costBasis := invested.Mul(toSell).DivRound(held, moneyScale)
	gross := toSell.Mul(price).Round(moneyScale)
	profit := gross.Sub(costBasis)
	tax := decimal.Zero
	if profit.IsPositive() {
		tax = profit.Mul(taxRate).Round(moneyScale)
	}

	remShares := held.Sub(toSell)
	remInvested := invested.Sub(costBasis)
	if remShares.LessThan(shareEpsilon) {
		remShares = decimal.Zero
		remInvested = decimal.Zero
	}

	return sellBreakdown{
		CostBasis:         costBasis,
		Gross:             gross,
		Profit:            profit,
		Tax:               tax,
		Net:               gross.Sub(tax),
		RemainingShares:   remShares,
		RemainingInvested: remInvested,
	}
}

// splitUBI floors the per-account payout to whole cents; the remainder
// carries over in the pool.
func splitUBI(pool decimal.Decimal, accounts int64) (payout, distributed, remainder decimal.Decimal) {
	payout = pool.DivRound(decimal.NewFromInt(accounts), 8).Truncate(2)
	distributed = payout.Mul(decimal.NewFromInt(accounts))
	return payout, distributed, pool.Sub(distributed)
}
