// Package slots implements the slot machine game. It only decides reel
// outcomes and payout multipliers; settling the wager against balances and
// the community pool is the economy engine's job.
package slots

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Symbol string

const (
	Cherry  Symbol = "cherry"
	Lemon   Symbol = "lemon"
	Bell    Symbol = "bell"
	Diamond Symbol = "diamond"
	Seven   Symbol = "seven"
)

var reel = []Symbol{
	Cherry, Cherry, Cherry, Cherry,
	Lemon, Lemon, Lemon, Lemon,
	Bell, Bell, Bell,
	Diamond, Diamond,
	Seven,
}

type Spin struct {
	Reels      [3]Symbol       `json:"reels"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type Machine struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewMachine() *Machine {
	return NewMachineWithSource(mathrand.NewSource(time.Now().UnixNano()))
}

// NewMachineWithSource pins the random source, which makes outcomes
// reproducible in tests.
func NewMachineWithSource(src mathrand.Source) *Machine {
	return &Machine{rand: mathrand.New(src)}
}

func (m *Machine) Spin() Spin {
	m.mu.Lock()
	var out Spin
	for i := range out.Reels {
		out.Reels[i] = reel[m.rand.Intn(len(reel))]
	}
	m.mu.Unlock()

	out.Multiplier = multiplier(out.Reels)
	return out
}

// Payout returns bet * multiplier for a spin, rounded to whole cents.
func (m *Machine) Payout(bet decimal.Decimal, s Spin) decimal.Decimal {
	return bet.Mul(s.Multiplier).Round(2)
}

func multiplier(reels [3]Symbol) decimal.Decimal {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		switch reels[0] {
		case Seven:
			return decimal.New(25, 0)
		case Diamond:
			return decimal.New(12, 0)
		case Bell:
			return decimal.New(6, 0)
		default:
			return decimal.New(3, 0)
		}
	}
	if reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2] {
		return decimal.New(15, -1) // pair pays 1.5x
	}
	return decimal.Zero
}
