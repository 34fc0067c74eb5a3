package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

type Asset struct {
	ID                int64           `json:"id"`
	EntityKind        EntityKind      `json:"entity_kind"`
	EntityID          string          `json:"entity_id"`
	Price             decimal.Decimal `json:"price"`
	PreviousPrice     decimal.Decimal `json:"previous_price"`
	DailyChangePct    decimal.Decimal `json:"daily_change_pct"`
	UpdateTimeMinutes int             `json:"update_time_minutes"`
	LastUpdatedAt     time.Time       `json:"last_updated_at"`
}

type BuyResult struct {
	SharesBought decimal.Decimal `json:"shares_bought"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	NewBalance   decimal.Decimal `json:"new_balance"`
}

type SellResult struct {
	SharesSold  decimal.Decimal `json:"shares_sold"`
	Price       decimal.Decimal `json:"price"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	Profit      decimal.Decimal `json:"profit"`
	Tax         decimal.Decimal `json:"tax"`
	NetProceeds decimal.Decimal `json:"net_proceeds"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

type TransferResult struct {
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	SenderBalance    decimal.Decimal `json:"sender_balance"`
	RecipientBalance decimal.Decimal `json:"recipient_balance"`
}

type WagerResult struct {
	Bet        decimal.Decimal `json:"bet"`
	Payout     decimal.Decimal `json:"payout"`
	Won        bool            `json:"won"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type PositionView struct {
	AssetID       int64           `json:"asset_id"`
	EntityKind    EntityKind      `json:"entity_kind"`
	EntityID      string          `json:"entity_id"`
	Shares        decimal.Decimal `json:"shares"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	Price         decimal.Decimal `json:"price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Unrealized    decimal.Decimal `json:"unrealized"`
}

type Portfolio struct {
	AccountID     string          `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	Positions     []PositionView  `json:"positions"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
}

type LeaderboardRow struct {
	Rank          int64           `json:"rank"`
	AccountID     string          `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
}

type MoverRow struct {
	AssetID        int64           `json:"asset_id"`
	EntityKind     EntityKind      `json:"entity_kind"`
	EntityID       string          `json:"entity_id"`
	Price          decimal.Decimal `json:"price"`
	PreviousPrice  decimal.Decimal `json:"previous_price"`
	DailyChangePct decimal.Decimal `json:"daily_change_pct"`
}

type LedgerEntry struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Counterparty string          `json:"counterparty,omitempty"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Shares       decimal.Decimal `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"`
}

type UBIReport struct {
	Accounts      int64           `json:"accounts"`
	PayoutPerUser decimal.Decimal `json:"payout_per_user"`
	Distributed   decimal.Decimal `json:"distributed"`
	Remainder     decimal.Decimal `json:"remainder"`
}

type WealthTaxReport struct {
	TaxedAccounts  int64           `json:"taxed_accounts"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
	TotalTax       decimal.Decimal `json:"total_tax"`
}
