package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moolah/internal/economy"
	"moolah/internal/metrics"
	"moolah/internal/slots"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type Server struct {
	log     *slog.Logger
	econ    *economy.Service
	machine *slots.Machine
	mux     *chi.Mux
}

func New(logger *slog.Logger, econ *economy.Service, machine *slots.Machine) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		econ:    econ,
		machine: machine,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts/{id}", s.handleEnsureAccount)
		r.Get("/accounts/{id}/balance", s.handleBalance)
		r.Get("/accounts/{id}/portfolio", s.handlePortfolio)
		r.Get("/accounts/{id}/ledger", s.handleLedger)

		r.Post("/stocks", s.handleGetOrCreateStock)
		r.Get("/stocks/{kind}/{entityID}", s.handleStock)
		r.Get("/movers", s.handleMovers)

		r.Post("/trades/buy", s.handleBuy)
		r.Post("/trades/sell", s.handleSell)
		r.Post("/transfers", s.handleTransfer)
		r.Post("/slots", s.handleSlots)

		r.Get("/pool", s.handlePool)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

func (s *Server) handleEnsureAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "account id required")
		return
	}
	if err := s.econ.EnsureAccount(r.Context(), id); err != nil {
		s.fail(w, "ensure account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.econ.GetBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	out, err := s.econ.GetPortfolio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "portfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.econ.LedgerHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.fail(w, "ledger", err)
		return
	}
	if out == nil {
		out = []economy.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleGetOrCreateStock(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Kind     string `json:"kind"`
		EntityID string `json:"entity_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := economy.ParseEntityKind(in.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	asset, err := s.econ.GetOrCreateStock(r.Context(), kind, strings.TrimSpace(in.EntityID))
	if err != nil {
		s.fail(w, "get or create stock", err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	kind, err := economy.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	asset, err := s.econ.GetStock(r.Context(), kind, chi.URLParam(r, "entityID"))
	if err != nil {
		s.fail(w, "stock", err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	gainers := r.URL.Query().Get("direction") != "losers"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.econ.TopMovers(r.Context(), gainers, limit)
	if err != nil {
		s.fail(w, "movers", err)
		return
	}
	if out == nil {
		out = []economy.MoverRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"movers": out})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccountID string          `json:"account_id"`
		AssetID   int64           `json:"asset_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.econ.Buy(r.Context(), in.AccountID, in.AssetID, in.Amount)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindBuy, failureReason(err)).Inc()
		s.fail(w, "buy", err)
		return
	}
	metrics.TradesTotal.WithLabelValues(economy.KindBuy).Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccountID string          `json:"account_id"`
		AssetID   int64           `json:"asset_id"`
		Shares    decimal.Decimal `json:"shares"`
		All       bool            `json:"all"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.econ.Sell(r.Context(), in.AccountID, in.AssetID, in.Shares, in.All)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindSell, failureReason(err)).Inc()
		s.fail(w, "sell", err)
		return
	}
	metrics.TradesTotal.WithLabelValues(economy.KindSell).Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.econ.Transfer(r.Context(), in.From, in.To, in.Amount)
	if err != nil {
		metrics.TradeFailures.WithLabelValues(economy.KindTransfer, failureReason(err)).Inc()
		s.fail(w, "transfer", err)
		return
	}
	metrics.TradesTotal.WithLabelValues(economy.KindTransfer).Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccountID string          `json:"account_id"`
		Bet       decimal.Decimal `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spin := s.machine.Spin()
	payout := s.machine.Payout(in.Bet, spin)
	out, err := s.econ.SettleWager(r.Context(), in.AccountID, in.Bet, payout)
	if err != nil {
		metrics.TradeFailures.WithLabelValues("slots", failureReason(err)).Inc()
		s.fail(w, "slots", err)
		return
	}
	kind := economy.KindSlotsLoss
	if out.Won {
		kind = economy.KindSlotsWin
	}
	metrics.TradesTotal.WithLabelValues(kind).Inc()
	writeJSON(w, http.StatusOK, map[string]any{"spin": spin, "result": out})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	amount, err := s.econ.GetPoolAmount(r.Context())
	if err != nil {
		s.fail(w, "pool", err)
		return
	}
	f, _ := amount.Float64()
	metrics.PoolAmount.Set(f)
	writeJSON(w, http.StatusOK, map[string]any{"pool": amount})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.econ.Leaderboard(r.Context(), limit)
	if err != nil {
		s.fail(w, "leaderboard", err)
		return
	}
	if out == nil {
		out = []economy.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

// fail maps economy sentinel errors onto HTTP statuses; anything unexpected
// is logged and reported as a 500.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, economy.ErrAccountNotFound),
		errors.Is(err, economy.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientShares),
		errors.Is(err, economy.ErrAmountNotPositive),
		errors.Is(err, economy.ErrSelfTransfer),
		errors.Is(err, economy.ErrBetOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, economy.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error(op+" failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, economy.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, economy.ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, economy.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, economy.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, economy.ErrAmountNotPositive):
		return "amount_not_positive"
	case errors.Is(err, economy.ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, economy.ErrBetOutOfRange):
		return "bet_out_of_range"
	case errors.Is(err, economy.ErrTxConflict):
		return "tx_conflict"
	default:
		return "internal"
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
