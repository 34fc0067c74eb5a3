package economy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.New(1, 0)
	hundred = decimal.New(100, 0)
	seven   = decimal.New(7, 0)
)

// GetOrCreateStock returns the asset tied to (kind, entityID), inserting it
// at the initial price on first use. The per-asset update minute is rolled
// once at creation so daily recomputes stay staggered across restarts.
func (s *Service) GetOrCreateStock(ctx context.Context, kind EntityKind, entityID string) (Asset, error) {
	if _, err := ParseEntityKind(string(kind)); err != nil {
		return Asset{}, err
	}
	if entityID == "" {
		return Asset{}, fmt.Errorf("entity id is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO econ.assets
		    (entity_kind, entity_id, price, previous_price, daily_change_pct, update_time_minutes, last_updated_at)
		VALUES ($1, $2, $3::NUMERIC, $3::NUMERIC, 0, $4, 'epoch')
		ON CONFLICT (entity_kind, entity_id) DO NOTHING
	`, kind, entityID, s.params.InitialPrice.String(), s.randomMinuteOfDay())
	if err != nil {
		return Asset{}, err
	}
	return s.getStock(ctx, kind, entityID)
}

// GetStock looks up an existing asset without creating one.
func (s *Service) GetStock(ctx context.Context, kind EntityKind, entityID string) (Asset, error) {
	return s.getStock(ctx, kind, entityID)
}

func (s *Service) getStock(ctx context.Context, kind EntityKind, entityID string) (Asset, error) {
	var a Asset
	var price, prev, change string
	err := s.db.QueryRow(ctx, `
		SELECT id, entity_kind, entity_id, price::text, previous_price::text,
		       daily_change_pct::text, update_time_minutes, last_updated_at
		FROM econ.assets
		WHERE entity_kind = $1 AND entity_id = $2
	`, kind, entityID).Scan(&a.ID, &a.EntityKind, &a.EntityID, &price, &prev, &change,
		&a.UpdateTimeMinutes, &a.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, ErrAssetNotFound
		}
		return a, err
	}
	if a.Price, err = decimal.NewFromString(price); err != nil {
		return a, err
	}
	if a.PreviousPrice, err = decimal.NewFromString(prev); err != nil {
		return a, err
	}
	if a.DailyChangePct, err = decimal.NewFromString(change); err != nil {
		return a, err
	}
	return a, nil
}

// UpdateStockPrices recomputes the price of every stale asset whose update
// minute has passed today. Assets are processed in bounded batches, each in
// its own transaction, so a large registry never holds one giant lock.
// Returns the number of assets updated. Overlapping runs are refused.
func (s *Service) UpdateStockPrices(ctx context.Context, now time.Time) (int, error) {
	if !s.priceMu.TryLock() {
		return 0, nil
	}
	defer s.priceMu.Unlock()

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	minuteOfDay := now.Hour()*60 + now.Minute()

	updated := 0
	for {
		batch, err := s.stalePriceBatch(ctx, dayStart, minuteOfDay)
		if err != nil {
			return updated, err
		}
		if len(batch) == 0 {
			return updated, nil
		}
		if err := s.repriceBatch(ctx, batch, dayStart, now); err != nil {
			return updated, err
		}
		updated += len(batch)
	}
}

type staleAsset struct {
	id         int64
	entityKind EntityKind
	entityID   string
	price      decimal.Decimal
}

func (s *Service) stalePriceBatch(ctx context.Context, dayStart time.Time, minuteOfDay int) ([]staleAsset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, entity_kind, entity_id, price::text
		FROM econ.assets
		WHERE last_updated_at < $1 AND update_time_minutes <= $2
		ORDER BY id
		LIMIT $3
	`, dayStart, minuteOfDay, s.params.PriceBatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []staleAsset
	for rows.Next() {
		var a staleAsset
		var price string
		if err := rows.Scan(&a.id, &a.entityKind, &a.entityID, &price); err != nil {
			return nil, err
		}
		if a.price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Service) repriceBatch(ctx context.Context, batch []staleAsset, dayStart, now time.Time) error {
	yesterday := dayStart.AddDate(0, 0, -1)
	baselineFrom := dayStart.AddDate(0, 0, -8)
	baselineTo := dayStart.AddDate(0, 0, -2)

	type reprice struct {
		id     int64
		price  decimal.Decimal
		change decimal.Decimal
	}
	updates := make([]reprice, 0, len(batch))
	for _, a := range batch {
		xpYesterday, err := s.activity.SumXP(ctx, a.entityKind, a.entityID, yesterday, yesterday)
		if err != nil {
			return fmt.Errorf("activity sum for %s/%s: %w", a.entityKind, a.entityID, err)
		}
		baselineSum, err := s.activity.SumXP(ctx, a.entityKind, a.entityID, baselineFrom, baselineTo)
		if err != nil {
			return fmt.Errorf("activity baseline for %s/%s: %w", a.entityKind, a.entityID, err)
		}
		baselineAvg := baselineSum.DivRound(seven, 8)

		change := dailyChangePct(xpYesterday, baselineAvg, s.params.PriceSmoothing, s.params.ChangeClampPct)
		price := applyChange(a.price, change, s.params.PriceFloor)
		updates = append(updates, reprice{id: a.id, price: price, change: change})
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, u := range updates {
		if _, err := tx.Exec(ctx, `
			UPDATE econ.assets
			SET previous_price = price,
			    price = $1::NUMERIC,
			    daily_change_pct = $2::NUMERIC,
			    last_updated_at = $3,
			    updated_at = now()
			WHERE id = $4
		`, u.price.String(), u.change.String(), now, u.id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.asset_prices (asset_id, tick_at, price)
			VALUES ($1, $2, $3::NUMERIC)
		`, u.id, now, u.price.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// dailyChangePct maps yesterday's activity against the trailing-week
// baseline onto a percentage move. Smoothing keeps low-activity entities
// from swinging on tiny inputs and makes the zero/zero case come out flat.
func dailyChangePct(xpYesterday, baselineAvg, smoothing, clampPct decimal.Decimal) decimal.Decimal {
	ratio, _ := xpYesterday.Add(smoothing).DivRound(baselineAvg.Add(smoothing), 12).Float64()
	pct := 10 * math.Log2(ratio)
	clamp, _ := clampPct.Float64()
	if pct > clamp {
		pct = clamp
	}
	if pct < -clamp {
		pct = -clamp
	}
	return decimal.NewFromFloat(pct).Round(4)
}

func applyChange(price, changePct, floor decimal.Decimal) decimal.Decimal {
	factor := one.Add(changePct.DivRound(hundred, 12))
	next := price.Mul(factor).Round(moneyScale)
	if next.LessThan(floor) {
		return floor
	}
	return next
}
