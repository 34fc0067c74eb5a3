package economy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const poolName = "ubi_pool"

// Scales match the NUMERIC column definitions.
const (
	moneyScale    = 6
	shareScale    = 8
	minutesPerDay = 1440
)

// Holdings below this many shares are snapped to exactly zero on sell.
var shareEpsilon = decimal.New(1, -8)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAssetNotFound      = errors.New("asset not found")
	ErrAmountNotPositive  = errors.New("amount must be > 0")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrSelfTransfer       = errors.New("cannot transfer to yourself")
	ErrBetOutOfRange      = errors.New("bet outside allowed range")
	ErrTxConflict         = errors.New("transaction conflict, try again")
)

type EntityKind string

const (
	EntityAccount EntityKind = "account"
	EntityGroup   EntityKind = "group"
	EntityChannel EntityKind = "channel"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(strings.ToLower(strings.TrimSpace(s))) {
	case EntityAccount:
		return EntityAccount, nil
	case EntityGroup:
		return EntityGroup, nil
	case EntityChannel:
		return EntityChannel, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Params holds every tunable rate and bound of the economy.
type Params struct {
	BuyFeeRate        decimal.Decimal
	SellProfitTaxRate decimal.Decimal
	TransferFeeRate   decimal.Decimal
	WealthTaxRate     decimal.Decimal

	StartingBalance decimal.Decimal
	InitialPrice    decimal.Decimal
	PriceFloor      decimal.Decimal

	// Additive smoothing applied to both sides of the activity ratio.
	PriceSmoothing decimal.Decimal
	// Daily change is clamped to [-ChangeClampPct, +ChangeClampPct].
	ChangeClampPct decimal.Decimal

	MinBet decimal.Decimal
	MaxBet decimal.Decimal

	PriceBatchSize int
}

func DefaultParams() Params {
	return Params{
		BuyFeeRate:        decimal.New(5, -4),  // 0.05%
		SellProfitTaxRate: decimal.New(1, -1),  // 10%
		TransferFeeRate:   decimal.New(5, -2),  // 5%
		WealthTaxRate:     decimal.New(1, -4),  // 0.01%
		StartingBalance:   decimal.New(1000, 0),
		InitialPrice:      decimal.New(100, 0),
		PriceFloor:        decimal.New(1, -2),
		PriceSmoothing:    decimal.New(1000, 0),
		ChangeClampPct:    decimal.New(10, 0),
		MinBet:            decimal.New(1, 0),
		MaxBet:            decimal.New(1000, 0),
		PriceBatchSize:    50,
	}
}

// Ledger entry kinds.
const (
	KindBuy       = "buy"
	KindSell      = "sell"
	KindTransfer  = "transfer"
	KindSlotsWin  = "slots_win"
	KindSlotsLoss = "slots_loss"
)
