package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AddToPool adds a non-negative amount to the community pool. The increment
// is a single atomic UPDATE; if the row does not exist yet the insert is
// attempted with ON CONFLICT DO NOTHING and the update retried, so two
// callers racing on first use cannot lose each other's increment.
func (s *Service) AddToPool(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("pool increment must be >= 0, got %s", amount)
	}
	if amount.IsZero() {
		return nil
	}
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := s.db.Exec(ctx, `
			UPDATE econ.pool SET amount = amount + $1::NUMERIC, updated_at = now()
			WHERE name = $2
		`, amount.String(), poolName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO econ.pool (name, amount) VALUES ($1, 0)
			ON CONFLICT (name) DO NOTHING
		`, poolName); err != nil {
			return err
		}
	}
	return fmt.Errorf("pool row unavailable after insert retries")
}

// GetPoolAmount returns the current pool value, lazily creating the zero row.
func (s *Service) GetPoolAmount(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, `
		SELECT amount::text FROM econ.pool WHERE name = $1
	`, poolName).Scan(&raw)
	if err == nil {
		return decimal.NewFromString(raw)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO econ.pool (name, amount) VALUES ($1, 0)
		ON CONFLICT (name) DO NOTHING
	`, poolName); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

func addToPoolTx(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := tx.Exec(ctx, `
			UPDATE econ.pool SET amount = amount + $1::NUMERIC, updated_at = now()
			WHERE name = $2
		`, amount.String(), poolName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.pool (name, amount) VALUES ($1, 0)
			ON CONFLICT (name) DO NOTHING
		`, poolName); err != nil {
			return err
		}
	}
	return fmt.Errorf("pool row unavailable after insert retries")
}

func lockPool(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	for attempt := 0; attempt < 3; attempt++ {
		var raw string
		err := tx.QueryRow(ctx, `
			SELECT amount::text FROM econ.pool WHERE name = $1
			FOR UPDATE
		`, poolName).Scan(&raw)
		if err == nil {
			return decimal.NewFromString(raw)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.pool (name, amount) VALUES ($1, 0)
			ON CONFLICT (name) DO NOTHING
		`, poolName); err != nil {
			return decimal.Zero, err
		}
	}
	return decimal.Zero, fmt.Errorf("pool row unavailable after insert retries")
}

func setPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE econ.pool SET amount = $1::NUMERIC, updated_at = now()
		WHERE name = $2
	`, amount.String(), poolName)
	return err
}
