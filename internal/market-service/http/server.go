package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/market-service/dto"
	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	"github.com/kushwahaamar-dev/truth/internal/shared/auth"
)

// Engine é o que a API precisa do market.Engine
type Engine interface {
	InitializeMarket(ctx context.Context, id, authority, mint string) (*market.Market, error)
	PlaceBet(ctx context.Context, id, user string, amount uint64, sideYes bool) (*market.UserBet, error)
	ResolveMarket(ctx context.Context, id, caller string, outcomeYes bool) (*market.Market, error)
	ClaimWinnings(ctx context.Context, id, caller string) (uint64, error)
	Quote(ctx context.Context, id, user string) (*market.Quote, error)
	GetMarket(ctx context.Context, id string) (*market.Market, error)
	ListMarkets(ctx context.Context, limit int) ([]market.Market, error)
	GetBet(ctx context.Context, id, user string) (*market.UserBet, error)
	ListBets(ctx context.Context, id string) ([]market.UserBet, error)
}

// API expõe o engine de mercados. Leituras são públicas; escritas exigem
// caller verificado (X-Caller-Id + token).
type API struct {
	Log         *zap.Logger
	Engine      Engine
	Verifier    *auth.Verifier
	DefaultMint string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/markets", a.listMarkets)
	r.Get("/markets/{id}", a.getMarket)
	r.Get("/markets/{id}/bets", a.listBets)
	r.Get("/markets/{id}/bets/{user}", a.getBet)
	r.Get("/markets/{id}/bets/{user}/quote", a.quote)

	r.Group(func(r chi.Router) {
		r.Use(a.Verifier.Middleware)
		r.Post("/markets", a.createMarket)         // caller vira authority
		r.Post("/markets/{id}/bets", a.placeBet)   // caller aposta
		r.Post("/markets/{id}/resolve", a.resolve) // só authority
		r.Post("/markets/{id}/claim", a.claim)     // só dono da aposta
	})
	return r
}

func (a *API) createMarket(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())

	var req dto.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	mint := req.Mint
	if mint == "" {
		mint = a.DefaultMint
	}

	m, err := a.Engine.InitializeMarket(r.Context(), req.MarketID, caller, mint)
	if err != nil {
		a.fail(w, "initialize market", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())

	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	if req.SideYes == nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "sideYes required")
		return
	}

	b, err := a.Engine.PlaceBet(r.Context(), chi.URLParam(r, "id"), caller, req.Amount, *req.SideYes)
	if err != nil {
		a.fail(w, "place bet", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) resolve(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())

	var req dto.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	if req.OutcomeYes == nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "outcomeYes required")
		return
	}

	m, err := a.Engine.ResolveMarket(r.Context(), chi.URLParam(r, "id"), caller, *req.OutcomeYes)
	if err != nil {
		a.fail(w, "resolve market", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	id := chi.URLParam(r, "id")

	payout, err := a.Engine.ClaimWinnings(r.Context(), id, caller)
	if err != nil {
		a.fail(w, "claim winnings", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ClaimResponse{MarketID: id, User: caller, Payout: payout})
}

func (a *API) listMarkets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ms, err := a.Engine.ListMarkets(r.Context(), limit)
	if err != nil {
		a.fail(w, "list markets", err)
		return
	}
	if ms == nil {
		ms = []market.Market{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) getMarket(w http.ResponseWriter, r *http.Request) {
	m, err := a.Engine.GetMarket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	bs, err := a.Engine.ListBets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, "list bets", err)
		return
	}
	if bs == nil {
		bs = []market.UserBet{}
	}
	writeJSON(w, http.StatusOK, bs)
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := a.Engine.GetBet(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "user"))
	if err != nil {
		a.fail(w, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) quote(w http.ResponseWriter, r *http.Request) {
	q, err := a.Engine.Quote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "user"))
	if err != nil {
		a.fail(w, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// statusOf mapeia erro de domínio para status HTTP
func statusOf(err error) int {
	switch {
	case errors.Is(err, market.ErrMarketNotFound), errors.Is(err, market.ErrBetNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrIDTooLong), errors.Is(err, market.ErrInvalidMarketID),
		errors.Is(err, market.ErrInvalidAmount), errors.Is(err, market.ErrInvalidMint):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrMarketAlreadyExists), errors.Is(err, market.ErrMarketResolved),
		errors.Is(err, market.ErrMarketAlreadyResolved), errors.Is(err, market.ErrMarketNotResolved),
		errors.Is(err, market.ErrAlreadyClaimed), errors.Is(err, market.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, market.ErrNoWinningStake), errors.Is(err, market.ErrSettlementUnavailable),
		errors.Is(err, market.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *API) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		a.Log.Error(op+" failed", zap.Error(err))
		writeError(w, status, "INTERNAL", "internal error")
		return
	}
	writeError(w, status, market.Code(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
