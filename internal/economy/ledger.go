package economy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ledgerRow struct {
	AccountID    string
	Counterparty string
	Kind         string
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Shares       decimal.Decimal
	Price        decimal.Decimal
}

// appendLedger records one completed operation. Entries are write-once;
// nothing in the engine ever updates or deletes them.
func appendLedger(ctx context.Context, tx pgx.Tx, row ledgerRow) error {
	var counterparty any
	if row.Counterparty != "" {
		counterparty = row.Counterparty
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO econ.ledger_entries (id, account_id, counterparty, kind, amount, fee, shares, price)
		VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC)
	`, uuid.NewString(), row.AccountID, counterparty, row.Kind,
		row.Amount.String(), row.Fee.String(), row.Shares.String(), row.Price.String())
	return err
}

// LedgerHistory returns the most recent entries for an account, newest first.
func (s *Service) LedgerHistory(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, account_id, COALESCE(counterparty, ''), kind,
		       amount::text, fee::text, shares::text, price::text, created_at
		FROM econ.ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var amount, fee, shares, price string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Counterparty, &e.Kind,
			&amount, &fee, &shares, &price, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if e.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, err
		}
		if e.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, err
		}
		if e.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
