package economy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeBuy(t *testing.T) {
	p := DefaultParams()

	// 100.00 at price 100.00 with a 0.05% fee: fee 0.05, 0.9995 shares.
	b := computeBuy(dec("100.00"), dec("100.00"), p.BuyFeeRate)
	if !b.Fee.Equal(dec("0.05")) {
		t.Fatalf("fee = %s, want 0.05", b.Fee)
	}
	if !b.Invested.Equal(dec("99.95")) {
		t.Fatalf("invested = %s, want 99.95", b.Invested)
	}
	if !b.Shares.Equal(dec("0.9995")) {
		t.Fatalf("shares = %s, want 0.9995", b.Shares)
	}
}

func TestComputeSellFullLiquidation(t *testing.T) {
	p := DefaultParams()

	// Continuing the buy above with the price risen to 110.00.
	sb := computeSell(dec("0.9995"), dec("100.00"), dec("0.9995"), dec("110.00"), p.SellProfitTaxRate)
	if !sb.CostBasis.Equal(dec("100.00")) {
		t.Fatalf("cost basis = %s, want 100.00", sb.CostBasis)
	}
	if !sb.Gross.Equal(dec("109.945")) {
		t.Fatalf("gross = %s, want 109.945", sb.Gross)
	}
	if !sb.Profit.Equal(dec("9.945")) {
		t.Fatalf("profit = %s, want 9.945", sb.Profit)
	}
	if !sb.Tax.Equal(dec("0.9945")) {
		t.Fatalf("tax = %s, want 0.9945", sb.Tax)
	}
	if !sb.Net.Equal(dec("108.9505")) {
		t.Fatalf("net = %s, want 108.9505", sb.Net)
	}
	if !sb.RemainingShares.IsZero() || !sb.RemainingInvested.IsZero() {
		t.Fatalf("full liquidation left shares=%s invested=%s", sb.RemainingShares, sb.RemainingInvested)
	}
}

func TestComputeSellProportionalBasis(t *testing.T) {
	p := DefaultParams()

	// Selling 3 of 10 shares removes exactly 30% of the cost basis.
	sb := computeSell(dec("10"), dec("500.00"), dec("3"), dec("40.00"), p.SellProfitTaxRate)
	if !sb.CostBasis.Equal(dec("150.00")) {
		t.Fatalf("cost basis = %s, want 150.00", sb.CostBasis)
	}
	if !sb.RemainingInvested.Equal(dec("350.00")) {
		t.Fatalf("remaining invested = %s, want 350.00", sb.RemainingInvested)
	}
	if !sb.RemainingShares.Equal(dec("7")) {
		t.Fatalf("remaining shares = %s, want 7", sb.RemainingShares)
	}
	// Sold below basis: no tax on a loss.
	if !sb.Profit.Equal(dec("-30.00")) {
		t.Fatalf("profit = %s, want -30.00", sb.Profit)
	}
	if !sb.Tax.IsZero() {
		t.Fatalf("tax on a loss = %s, want 0", sb.Tax)
	}
	if !sb.Net.Equal(sb.Gross) {
		t.Fatalf("net %s != gross %s on a loss", sb.Net, sb.Gross)
	}
}

func TestComputeSellEpsilonSnap(t *testing.T) {
	p := DefaultParams()

	// Selling all but a sub-epsilon sliver zeroes the position.
	sb := computeSell(dec("1"), dec("100.00"), dec("0.999999995"), dec("100.00"), p.SellProfitTaxRate)
	if !sb.RemainingShares.IsZero() {
		t.Fatalf("remaining shares = %s, want 0", sb.RemainingShares)
	}
	if !sb.RemainingInvested.IsZero() {
		t.Fatalf("remaining invested = %s, want 0", sb.RemainingInvested)
	}
}

func TestSplitUBI(t *testing.T) {
	tests := []struct {
		pool        string
		accounts    int64
		payout      string
		distributed string
		remainder   string
	}{
		{"100.00", 3, "33.33", "99.99", "0.01"},
		{"0.02", 3, "0", "0", "0.02"},
		{"10.00", 4, "2.5", "10", "0"},
	}
	for _, tc := range tests {
		payout, distributed, remainder := splitUBI(dec(tc.pool), tc.accounts)
		if !payout.Equal(dec(tc.payout)) {
			t.Fatalf("pool=%s n=%d payout=%s want %s", tc.pool, tc.accounts, payout, tc.payout)
		}
		if !distributed.Equal(dec(tc.distributed)) {
			t.Fatalf("pool=%s n=%d distributed=%s want %s", tc.pool, tc.accounts, distributed, tc.distributed)
		}
		if !remainder.Equal(dec(tc.remainder)) {
			t.Fatalf("pool=%s n=%d remainder=%s want %s", tc.pool, tc.accounts, remainder, tc.remainder)
		}
	}
}

func TestWealthTaxRate(t *testing.T) {
	p := DefaultParams()

	// 1000.00 and 500.00 at 0.01%: taxes 0.10 and 0.05.
	a := dec("1000.00").Mul(p.WealthTaxRate)
	b := dec("500.00").Mul(p.WealthTaxRate)
	if !a.Equal(dec("0.10")) {
		t.Fatalf("tax(1000.00) = %s, want 0.10", a)
	}
	if !b.Equal(dec("0.05")) {
		t.Fatalf("tax(500.00) = %s, want 0.05", b)
	}
}
