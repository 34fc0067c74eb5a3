// Package bot exposes the economy over Discord chat commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moolah/internal/economy"
	"moolah/internal/metrics"
	"moolah/internal/slots"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

const commandTimeout = 30 * time.Second

type Bot struct {
	session *discordgo.Session
	log     *slog.Logger
	econ    *economy.Service
	machine *slots.Machine
	prefix  string
}

func New(token, prefix string, econ *economy.Service, machine *slots.Machine, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		log:     logger,
		econ:    econ,
		machine: machine,
		prefix:  prefix,
	}
	session.AddHandler(b.onMessage)
	return b, nil
}

func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, b.prefix))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.econ.EnsureAccount(ctx, m.Author.ID); err != nil {
		b.log.Error("ensure account failed", "user", m.Author.ID, "err", err)
		b.reply(s, m, "something went wrong, try again later")
		return
	}

	var reply string
	var err error
	switch cmd {
	case "help":
		reply = b.helpText()
	case "bal", "balance":
		reply, err = b.cmdBalance(ctx, m.Author.ID)
	case "portfolio", "pf":
		reply, err = b.cmdPortfolio(ctx, m.Author.ID)
	case "buy":
		reply, err = b.cmdBuy(ctx, m.Author.ID, args)
	case "sell":
		reply, err = b.cmdSell(ctx, m.Author.ID, args)
	case "give", "transfer":
		reply, err = b.cmdGive(ctx, m, args)
	case "slots":
		reply, err = b.cmdSlots(ctx, m.Author.ID, args)
	case "stock":
		reply, err = b.cmdStock(ctx, args)
	case "top", "leaderboard":
		reply, err = b.cmdLeaderboard(ctx)
	case "movers":
		reply, err = b.cmdMovers(ctx, args)
	case "pool":
		reply, err = b.cmdPool(ctx)
	default:
		return
	}
	if err != nil {
		reply = b.errorText(cmd, err)
	}
	if reply != "" {
		b.reply(s, m, reply)
	}
}

func (b *Bot) cmdBalance(ctx context.Context, userID string) (string, error) {
	balance, err := b.econ.GetBalance(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("balance: **%s**", balance.StringFixed(2)), nil
}

func (b *Bot) cmdPortfolio(ctx context.Context, userID string) (string, error) {
	pf, err := b.econ.GetPortfolio(ctx, userID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "cash **%s** | holdings **%s** | net worth **%s**\n",
		pf.Balance.StringFixed(2), pf.HoldingsValue.StringFixed(2), pf.NetWorth.StringFixed(2))
	for _, p := range pf.Positions {
		fmt.Fprintf(&sb, "%s/%s: %s shares @ %s = %s (unrealized %s)\n",
			p.EntityKind, p.EntityID, p.Shares.StringFixed(4),
			p.Price.StringFixed(2), p.MarketValue.StringFixed(2), p.Unrealized.StringFixed(2))
	}
	return sb.String(), nil
}

func (b *Bot) cmdBuy(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) != 3 {
		return fmt.Sprintf("usage: %sbuy <account|group|channel> <id> <amount>", b.prefix), nil
	}
	kind, err := economy.ParseEntityKind(args[0])
	if err != nil {
		return "", err
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return "", economy.ErrAmountNotPositive
	}
	asset, err := b.econ.GetOrCreateStock(ctx, kind, args[1])
	if err != nil {
		return "", err
	}
	res, err := b.econ.Buy(ctx, userID, asset.ID, amount)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindBuy, "bot").Inc()
		return "", err
	}
	metrics.TradesTotal.WithLabelValues(economy.KindBuy).Inc()
	return fmt.Sprintf("bought **%s** shares of %s/%s at %s (fee %s), balance %s",
		res.SharesBought.String(), kind, args[1],
		res.Price.StringFixed(2), res.Fee.StringFixed(2), res.NewBalance.StringFixed(2)), nil
}

func (b *Bot) cmdSell(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) != 3 {
		return fmt.Sprintf("usage: %ssell <account|group|channel> <id> <shares|all>", b.prefix), nil
	}
	kind, err := economy.ParseEntityKind(args[0])
	if err != nil {
		return "", err
	}
	asset, err := b.econ.GetStock(ctx, kind, args[1])
	if err != nil {
		return "", err
	}
	sellAll := strings.EqualFold(args[2], "all")
	var shares decimal.Decimal
	if !sellAll {
		shares, err = decimal.NewFromString(args[2])
		if err != nil {
			return "", economy.ErrAmountNotPositive
		}
	}
	res, err := b.econ.Sell(ctx, userID, asset.ID, shares, sellAll)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindSell, "bot").Inc()
		return "", err
	}
	metrics.TradesTotal.WithLabelValues(economy.KindSell).Inc()
	return fmt.Sprintf("sold **%s** shares at %s: gross %s, tax %s, net **%s**, balance %s",
		res.SharesSold.String(), res.Price.StringFixed(2), res.GrossAmount.StringFixed(2),
		res.Tax.StringFixed(2), res.NetProceeds.StringFixed(2), res.NewBalance.StringFixed(2)), nil
}

func (b *Bot) cmdGive(ctx context.Context, m *discordgo.MessageCreate, args []string) (string, error) {
	if len(args) != 2 || len(m.Mentions) != 1 {
		return fmt.Sprintf("usage: %sgive @user <amount>", b.prefix), nil
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return "", economy.ErrAmountNotPositive
	}
	recipient := m.Mentions[0]
	if recipient.Bot {
		return "bots have no use for money", nil
	}
	if err := b.econ.EnsureAccount(ctx, recipient.ID); err != nil {
		return "", err
	}
	res, err := b.econ.Transfer(ctx, m.Author.ID, recipient.ID, amount)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindTransfer, "bot").Inc()
		return "", err
	}
	metrics.TradesTotal.WithLabelValues(economy.KindTransfer).Inc()
	return fmt.Sprintf("sent **%s** to <@%s> (fee %s), your balance %s",
		res.Amount.StringFixed(2), recipient.ID, res.Fee.StringFixed(2), res.SenderBalance.StringFixed(2)), nil
}

func (b *Bot) cmdSlots(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) != 1 {
		return fmt.Sprintf("usage: %sslots <bet>", b.prefix), nil
	}
	bet, err := decimal.NewFromString(args[0])
	if err != nil {
		return "", economy.ErrBetOutOfRange
	}
	spin := b.machine.Spin()
	payout := b.machine.Payout(bet, spin)
	res, err := b.econ.SettleWager(ctx, userID, bet, payout)
	if err != nil {
		metrics.TradeFailures.WithLabelValues("slots", "bot").Inc()
		return "", err
	}
	kind := economy.KindSlotsLoss
	outcome := "no win"
	if res.Won {
		kind = economy.KindSlotsWin
		outcome = fmt.Sprintf("won **%s**", res.Payout.StringFixed(2))
	}
	metrics.TradesTotal.WithLabelValues(kind).Inc()
	return fmt.Sprintf("%s %s %s | %s, balance %s",
		spin.Reels[0], spin.Reels[1], spin.Reels[2], outcome, res.NewBalance.StringFixed(2)), nil
}

func (b *Bot) cmdStock(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return fmt.Sprintf("usage: %sstock <account|group|channel> <id>", b.prefix), nil
	}
	kind, err := economy.ParseEntityKind(args[0])
	if err != nil {
		return "", err
	}
	asset, err := b.econ.GetOrCreateStock(ctx, kind, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s: price **%s** (prev %s, change %s%%)",
		asset.EntityKind, asset.EntityID, asset.Price.StringFixed(2),
		asset.PreviousPrice.StringFixed(2), asset.DailyChangePct.StringFixed(2)), nil
}

func (b *Bot) cmdLeaderboard(ctx context.Context) (string, error) {
	rows, err := b.econ.Leaderboard(ctx, 10)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "nobody is rich yet", nil
	}
	var sb strings.Builder
	sb.WriteString("**richest members**\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%d. <@%s> net worth %s (cash %s)\n",
			r.Rank, r.AccountID, r.NetWorth.StringFixed(2), r.Balance.StringFixed(2))
	}
	return sb.String(), nil
}

func (b *Bot) cmdMovers(ctx context.Context, args []string) (string, error) {
	gainers := len(args) == 0 || !strings.EqualFold(args[0], "losers")
	rows, err := b.econ.TopMovers(ctx, gainers, 5)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "no price moves recorded today", nil
	}
	title := "top gainers"
	if !gainers {
		title = "top losers"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n", title)
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s/%s: %s (%s%%)\n",
			r.EntityKind, r.EntityID, r.Price.StringFixed(2), r.DailyChangePct.StringFixed(2))
	}
	return sb.String(), nil
}

func (b *Bot) cmdPool(ctx context.Context) (string, error) {
	amount, err := b.econ.GetPoolAmount(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("community pool: **%s**", amount.StringFixed(2)), nil
}

func (b *Bot) helpText() string {
	p := b.prefix
	return strings.Join([]string{
		p + "bal | " + p + "portfolio | " + p + "pool",
		p + "buy <kind> <id> <amount> | " + p + "sell <kind> <id> <shares|all>",
		p + "give @user <amount> | " + p + "slots <bet>",
		p + "stock <kind> <id> | " + p + "top | " + p + "movers [losers]",
	}, "\n")
}

// errorText turns sentinel errors into user-facing messages; anything
// unexpected is logged and hidden.
func (b *Bot) errorText(cmd string, err error) string {
	switch {
	case errors.Is(err, economy.ErrInsufficientFunds):
		return "you don't have enough money for that"
	case errors.Is(err, economy.ErrInsufficientShares):
		return "you don't hold that many shares"
	case errors.Is(err, economy.ErrAmountNotPositive):
		return "amount must be a positive number"
	case errors.Is(err, economy.ErrSelfTransfer):
		return "you can't send money to yourself"
	case errors.Is(err, economy.ErrBetOutOfRange):
		p := b.econ.Params()
		return fmt.Sprintf("bets must be between %s and %s", p.MinBet.StringFixed(2), p.MaxBet.StringFixed(2))
	case errors.Is(err, economy.ErrAssetNotFound):
		return "no such stock"
	case errors.Is(err, economy.ErrAccountNotFound):
		return "no such account"
	case errors.Is(err, economy.ErrTxConflict):
		return "the market is busy, try again"
	default:
		b.log.Error("command failed", "cmd", cmd, "err", err)
		return "something went wrong, try again later"
	}
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		b.log.Error("send reply failed", "channel", m.ChannelID, "err", err)
	}
}
