package economy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GetBalance returns an account's cash balance.
func (s *Service) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, `
		SELECT balance::text FROM econ.accounts WHERE id = $1
	`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// GetPortfolio returns the account's cash plus every non-zero position
// valued at the current price.
func (s *Service) GetPortfolio(ctx context.Context, accountID string) (Portfolio, error) {
	out := Portfolio{AccountID: accountID, HoldingsValue: decimal.Zero, NetWorth: decimal.Zero}

	balance, err := s.GetBalance(ctx, accountID)
	if err != nil {
		return out, err
	}
	out.Balance = balance

	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.entity_kind, a.entity_id,
		       h.shares::text, h.total_invested::text, a.price::text
		FROM econ.holdings h
		JOIN econ.assets a ON a.id = h.asset_id
		WHERE h.account_id = $1 AND h.shares > 0
		ORDER BY a.id
	`, accountID)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		var p PositionView
		var shares, invested, price string
		if err := rows.Scan(&p.AssetID, &p.EntityKind, &p.EntityID, &shares, &invested, &price); err != nil {
			return out, err
		}
		if p.Shares, err = decimal.NewFromString(shares); err != nil {
			return out, err
		}
		if p.TotalInvested, err = decimal.NewFromString(invested); err != nil {
			return out, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return out, err
		}
		p.MarketValue = p.Shares.Mul(p.Price).Round(moneyScale)
		p.Unrealized = p.MarketValue.Sub(p.TotalInvested)
		out.HoldingsValue = out.HoldingsValue.Add(p.MarketValue)
		out.Positions = append(out.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	out.NetWorth = out.Balance.Add(out.HoldingsValue)
	return out, nil
}

// Leaderboard ranks accounts by net worth (cash + holdings at market).
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		WITH holdings AS (
			SELECT h.account_id, COALESCE(SUM(h.shares * a.price), 0) AS value
			FROM econ.holdings h
			JOIN econ.assets a ON a.id = h.asset_id
			GROUP BY h.account_id
		)
		SELECT ac.id, ac.balance::text, COALESCE(h.value, 0)::text,
		       (ac.balance + COALESCE(h.value, 0))::text AS net_worth
		FROM econ.accounts ac
		LEFT JOIN holdings h ON h.account_id = ac.id
		ORDER BY net_worth DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	var rank int64 = 1
	for rows.Next() {
		var r LeaderboardRow
		var balance, value, net string
		if err := rows.Scan(&r.AccountID, &balance, &value, &net); err != nil {
			return nil, err
		}
		if r.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		if r.HoldingsValue, err = decimal.NewFromString(value); err != nil {
			return nil, err
		}
		if r.NetWorth, err = decimal.NewFromString(net); err != nil {
			return nil, err
		}
		r.Rank = rank
		rank++
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopMovers lists assets by daily change, gainers first when gainers is
// true, losers first otherwise.
func (s *Service) TopMovers(ctx context.Context, gainers bool, limit int) ([]MoverRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	order := "DESC"
	if !gainers {
		order = "ASC"
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, entity_kind, entity_id, price::text, previous_price::text, daily_change_pct::text
		FROM econ.assets
		WHERE last_updated_at > 'epoch'
		ORDER BY daily_change_pct `+order+`, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MoverRow
	for rows.Next() {
		var r MoverRow
		var price, prev, change string
		if err := rows.Scan(&r.AssetID, &r.EntityKind, &r.EntityID, &price, &prev, &change); err != nil {
			return nil, err
		}
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if r.PreviousPrice, err = decimal.NewFromString(prev); err != nil {
			return nil, err
		}
		if r.DailyChangePct, err = decimal.NewFromString(change); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
