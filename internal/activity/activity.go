// Package activity reads the per-entity daily activity aggregates produced
// by the chat tracking pipeline. The economy engine only ever reads this
// data; nothing here mutates it.
package activity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"moolah/internal/economy"
)

type Reader struct {
	db *pgxpool.Pool
}

func NewReader(db *pgxpool.Pool) *Reader {
	return &Reader{db: db}
}

// SumXP totals the activity metric for the entity over the inclusive
// [from, to] range of UTC calendar days. Missing days count as zero.
func (r *Reader) SumXP(ctx context.Context, kind economy.EntityKind, entityID string, from, to time.Time) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(xp), 0)::text
		FROM econ.activity_events
		WHERE entity_kind = $1 AND entity_id = $2
		  AND day BETWEEN $3::date AND $4::date
	`, kind, entityID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02")).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}
