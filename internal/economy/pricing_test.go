package economy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDailyChangePctNoActivity(t *testing.T) {
	p := DefaultParams()

	// No activity anywhere: smoothing makes the ratio 1, change 0.
	got := dailyChangePct(decimal.Zero, decimal.Zero, p.PriceSmoothing, p.ChangeClampPct)
	if !got.IsZero() {
		t.Fatalf("change = %s, want 0", got)
	}
}

func TestDailyChangePctClamp(t *testing.T) {
	p := DefaultParams()

	up := dailyChangePct(dec("10000000"), decimal.Zero, p.PriceSmoothing, p.ChangeClampPct)
	if !up.Equal(dec("10")) {
		t.Fatalf("extreme spike change = %s, want clamp 10", up)
	}
	down := dailyChangePct(decimal.Zero, dec("10000000"), p.PriceSmoothing, p.ChangeClampPct)
	if !down.Equal(dec("-10")) {
		t.Fatalf("extreme drop change = %s, want clamp -10", down)
	}
}

func TestDailyChangePctDoubledActivity(t *testing.T) {
	p := DefaultParams()

	// (1000+1000)/(0+1000) = 2 exactly: 10*log2(2) = 10, inside the clamp.
	got := dailyChangePct(dec("1000"), decimal.Zero, p.PriceSmoothing, p.ChangeClampPct)
	if !got.Equal(dec("10")) {
		t.Fatalf("change = %s, want 10", got)
	}
}

func TestDailyChangePctDeterministic(t *testing.T) {
	p := DefaultParams()

	a := dailyChangePct(dec("3417"), dec("1288.5"), p.PriceSmoothing, p.ChangeClampPct)
	for i := 0; i < 10; i++ {
		b := dailyChangePct(dec("3417"), dec("1288.5"), p.PriceSmoothing, p.ChangeClampPct)
		if !a.Equal(b) {
			t.Fatalf("run %d: %s != %s", i, b, a)
		}
	}
	if a.LessThan(dec("-10")) || a.GreaterThan(dec("10")) {
		t.Fatalf("change %s escaped the clamp", a)
	}
}

func TestApplyChange(t *testing.T) {
	floor := DefaultParams().PriceFloor

	tests := []struct {
		price  string
		change string
		want   string
	}{
		{"100", "0", "100"},
		{"100", "10", "110"},
		{"100", "-10", "90"},
		{"0.01", "-10", "0.01"}, // floored
		{"55.5", "2.5", "56.8875"},
	}
	for _, tc := range tests {
		got := applyChange(dec(tc.price), dec(tc.change), floor)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("price=%s change=%s got=%s want=%s", tc.price, tc.change, got, tc.want)
		}
	}
}

func TestParseEntityKind(t *testing.T) {
	for _, s := range []string{"account", "Group", " CHANNEL "} {
		if _, err := ParseEntityKind(s); err != nil {
			t.Fatalf("expected %q to parse: %v", s, err)
		}
	}
	if _, err := ParseEntityKind("guild"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
