package economy

import (
	"context"
	"errors"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ActivitySource supplies the per-entity daily activity aggregates the
// pricing engine consumes. The engine never writes activity data.
type ActivitySource interface {
	// SumXP returns the total activity metric for the entity over the
	// inclusive [from, to] range of UTC calendar days.
	SumXP(ctx context.Context, kind EntityKind, entityID string, from, to time.Time) (decimal.Decimal, error)
}

type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	params   Params
	activity ActivitySource

	mu   sync.Mutex
	rand *mathrand.Rand

	// Per-job guards: each periodic job refuses to overlap itself.
	ubiMu   sync.Mutex
	taxMu   sync.Mutex
	priceMu sync.Mutex
}

func NewService(db *pgxpool.Pool, activity ActivitySource, params Params, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		log:      logger,
		params:   params,
		activity: activity,
		rand:     mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) Params() Params { return s.params }

// EnsureAccount creates the account with the starting balance if it does not
// exist yet. Safe to call on every inbound command.
func (s *Service) EnsureAccount(ctx context.Context, accountID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO econ.accounts (id, balance)
		VALUES ($1, $2::NUMERIC)
		ON CONFLICT (id) DO NOTHING
	`, accountID, s.params.StartingBalance.String())
	return err
}

// Buy purchases amount worth of the asset at the current price. The buy fee
// is skimmed into the pool; the rest converts to shares.
func (s *Service) Buy(ctx context.Context, accountID string, assetID int64, amount decimal.Decimal) (BuyResult, error) {
	var out BuyResult
	if !amount.IsPositive() {
		return out, ErrAmountNotPositive
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		price, err := lockAssetPrice(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if !price.IsPositive() {
			return ErrAssetNotFound
		}
		if balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		b := computeBuy(amount, price, s.params.BuyFeeRate)
		fee, shares := b.Fee, b.Shares

		newBalance := balance.Sub(amount)
		if err := setBalance(ctx, tx, accountID, newBalance); err != nil {
			return err
		}
		if err := addToPoolTx(ctx, tx, fee); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.holdings (account_id, asset_id, shares, total_invested)
			VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC)
			ON CONFLICT (account_id, asset_id) DO UPDATE
			SET shares = econ.holdings.shares + EXCLUDED.shares,
			    total_invested = econ.holdings.total_invested + EXCLUDED.total_invested,
			    updated_at = now()
		`, accountID, assetID, shares.String(), amount.String()); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, ledgerRow{
			AccountID: accountID,
			Kind:      KindBuy,
			Amount:    amount,
			Fee:       fee,
			Shares:    shares,
			Price:     price,
		}); err != nil {
			return err
		}

		out = BuyResult{SharesBought: shares, Price: price, Fee: fee, NewBalance: newBalance}
		return nil
	})
	return out, err
}

// Sell liquidates shares of a holding. Profit (proceeds above the
// proportional cost basis) is taxed into the pool; losses are untaxed.
// Pass sellAll to liquidate the entire position.
func (s *Service) Sell(ctx context.Context, accountID string, assetID int64, shares decimal.Decimal, sellAll bool) (SellResult, error) {
	var out SellResult
	if !sellAll && !shares.IsPositive() {
		return out, ErrAmountNotPositive
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		price, err := lockAssetPrice(ctx, tx, assetID)
		if err != nil {
			return err
		}

		var heldStr, investedStr string
		err = tx.QueryRow(ctx, `
			SELECT shares::text, total_invested::text
			FROM econ.holdings
			WHERE account_id = $1 AND asset_id = $2
			FOR UPDATE
		`, accountID, assetID).Scan(&heldStr, &investedStr)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientShares
			}
			return err
		}
		held, err := decimal.NewFromString(heldStr)
		if err != nil {
			return err
		}
		invested, err := decimal.NewFromString(investedStr)
		if err != nil {
			return err
		}
		if !held.IsPositive() {
			return ErrInsufficientShares
		}

		toSell := shares
		if sellAll {
			toSell = held
		}
		if toSell.GreaterThan(held) {
			return ErrInsufficientShares
		}

		sb := computeSell(held, invested, toSell, price, s.params.SellProfitTaxRate)

		if _, err := tx.Exec(ctx, `
			UPDATE econ.holdings
			SET shares = $1::NUMERIC, total_invested = $2::NUMERIC, updated_at = now()
			WHERE account_id = $3 AND asset_id = $4
		`, sb.RemainingShares.String(), sb.RemainingInvested.String(), accountID, assetID); err != nil {
			return err
		}
		newBalance := balance.Add(sb.Net)
		if err := setBalance(ctx, tx, accountID, newBalance); err != nil {
			return err
		}
		if sb.Tax.IsPositive() {
			if err := addToPoolTx(ctx, tx, sb.Tax); err != nil {
				return err
			}
		}
		if err := appendLedger(ctx, tx, ledgerRow{
			AccountID: accountID,
			Kind:      KindSell,
			Amount:    sb.Net,
			Fee:       sb.Tax,
			Shares:    toSell,
			Price:     price,
		}); err != nil {
			return err
		}

		out = SellResult{
			SharesSold:  toSell,
			Price:       price,
			GrossAmount: sb.Gross,
			CostBasis:   sb.CostBasis,
			Profit:      sb.Profit,
			Tax:         sb.Tax,
			NetProceeds: sb.Net,
			NewBalance:  newBalance,
		}
		return nil
	})
	return out, err
}

// Transfer moves amount from one account to another. The sender pays
// amount plus the transfer fee; the fee lands in the pool.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	var out TransferResult
	if fromID == toID {
		return out, ErrSelfTransfer
	}
	if !amount.IsPositive() {
		return out, ErrAmountNotPositive
	}

	fee := amount.Mul(s.params.TransferFeeRate).Round(moneyScale)
	total := amount.Add(fee)

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		// Lock both rows in id order so two opposing transfers can't deadlock.
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		balances := map[string]decimal.Decimal{}
		for _, id := range []string{first, second} {
			b, err := lockAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			balances[id] = b
		}

		if balances[fromID].LessThan(total) {
			return ErrInsufficientFunds
		}
		senderBalance := balances[fromID].Sub(total)
		recipientBalance := balances[toID].Add(amount)

		if err := setBalance(ctx, tx, fromID, senderBalance); err != nil {
			return err
		}
		if err := setBalance(ctx, tx, toID, recipientBalance); err != nil {
			return err
		}
		if err := addToPoolTx(ctx, tx, fee); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, ledgerRow{
			AccountID:    fromID,
			Counterparty: toID,
			Kind:         KindTransfer,
			Amount:       amount,
			Fee:          fee,
		}); err != nil {
			return err
		}

		out = TransferResult{
			Amount:           amount,
			Fee:              fee,
			SenderBalance:    senderBalance,
			RecipientBalance: recipientBalance,
		}
		return nil
	})
	return out, err
}

// SettleWager settles one slot-machine round. The bet always moves into the
// pool; a win pays out of the pool, capped at whatever the pool holds, so
// the games never mint currency.
func (s *Service) SettleWager(ctx context.Context, accountID string, bet, payout decimal.Decimal) (WagerResult, error) {
	var out WagerResult
	if bet.LessThan(s.params.MinBet) || bet.GreaterThan(s.params.MaxBet) {
		return out, ErrBetOutOfRange
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if balance.LessThan(bet) {
			return ErrInsufficientFunds
		}
		if err := addToPoolTx(ctx, tx, bet); err != nil {
			return err
		}
		newBalance := balance.Sub(bet)

		paid := decimal.Zero
		if payout.IsPositive() {
			poolAmount, err := lockPool(ctx, tx)
			if err != nil {
				return err
			}
			paid = decimal.Min(payout.Round(moneyScale), poolAmount)
			if paid.IsPositive() {
				if err := setPool(ctx, tx, poolAmount.Sub(paid)); err != nil {
					return err
				}
				newBalance = newBalance.Add(paid)
			}
		}
		if err := setBalance(ctx, tx, accountID, newBalance); err != nil {
			return err
		}

		kind := KindSlotsLoss
		amount := bet
		if paid.GreaterThan(bet) {
			kind = KindSlotsWin
			amount = paid
		}
		if err := appendLedger(ctx, tx, ledgerRow{
			AccountID: accountID,
			Kind:      kind,
			Amount:    amount,
		}); err != nil {
			return err
		}

		out = WagerResult{Bet: bet, Payout: paid, Won: kind == KindSlotsWin, NewBalance: newBalance}
		return nil
	})
	return out, err
}

func lockAccount(ctx context.Context, tx pgx.Tx, accountID string) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow(ctx, `
		SELECT balance::text
		FROM econ.accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func lockAssetPrice(ctx context.Context, tx pgx.Tx, assetID int64) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow(ctx, `
		SELECT price::text
		FROM econ.assets
		WHERE id = $1
		FOR UPDATE
	`, assetID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAssetNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func setBalance(ctx context.Context, tx pgx.Tx, accountID string, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE econ.accounts
		SET balance = $1::NUMERIC, updated_at = now()
		WHERE id = $2
	`, balance.String(), accountID)
	return err
}

func (s *Service) runSerializable(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) randomMinuteOfDay() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(minutesPerDay)
}
