package slots

import (
	mathrand "math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMultiplier(t *testing.T) {
	tests := []struct {
		reels [3]Symbol
		want  string
	}{
		{[3]Symbol{Seven, Seven, Seven}, "25"},
		{[3]Symbol{Diamond, Diamond, Diamond}, "12"},
		{[3]Symbol{Bell, Bell, Bell}, "6"},
		{[3]Symbol{Cherry, Cherry, Cherry}, "3"},
		{[3]Symbol{Lemon, Lemon, Lemon}, "3"},
		{[3]Symbol{Cherry, Cherry, Lemon}, "1.5"},
		{[3]Symbol{Cherry, Lemon, Cherry}, "1.5"},
		{[3]Symbol{Lemon, Cherry, Cherry}, "1.5"},
		{[3]Symbol{Cherry, Lemon, Bell}, "0"},
	}
	for _, tc := range tests {
		want, err := decimal.NewFromString(tc.want)
		if err != nil {
			t.Fatal(err)
		}
		if got := multiplier(tc.reels); !got.Equal(want) {
			t.Fatalf("reels %v: multiplier = %s, want %s", tc.reels, got, want)
		}
	}
}

func TestSpinDeterministicWithSeed(t *testing.T) {
	a := NewMachineWithSource(mathrand.NewSource(42))
	b := NewMachineWithSource(mathrand.NewSource(42))
	for i := 0; i < 20; i++ {
		sa, sb := a.Spin(), b.Spin()
		if sa.Reels != sb.Reels {
			t.Fatalf("spin %d diverged: %v vs %v", i, sa.Reels, sb.Reels)
		}
		if !sa.Multiplier.Equal(sb.Multiplier) {
			t.Fatalf("spin %d multiplier diverged", i)
		}
	}
}

func TestPayoutRounding(t *testing.T) {
	m := NewMachine()
	bet, _ := decimal.NewFromString("3.33")
	spin := Spin{Reels: [3]Symbol{Cherry, Cherry, Lemon}, Multiplier: multiplier([3]Symbol{Cherry, Cherry, Lemon})}
	got := m.Payout(bet, spin)
	want, _ := decimal.NewFromString("5.00")
	if !got.Equal(want) {
		t.Fatalf("payout = %s, want %s", got, want)
	}
}
