package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/pool-service/dto"
	"github.com/kushwahaamar-dev/truth/internal/pool-service/repo"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

type ReadRepo interface {
	ListMarkets(ctx context.Context, limit int) ([]dto.MarketSummary, error)
	GetPool(ctx context.Context, marketID string) (*events.PoolSnapshot, error)
}

type PoolCache interface {
	GetPool(ctx context.Context, marketID string) (*events.PoolSnapshot, bool, error)
	SetFallback(ctx context.Context, s *events.PoolSnapshot, ttl time.Duration) error
}

// API expõe os endpoints REST de consulta de pools.
// Utiliza o snapshot do Redis e cai para o Postgres quando não há.
type API struct {
	Log      *zap.Logger
	ReadRepo ReadRepo
	Cache    PoolCache
	CacheTTL time.Duration // TTL do snapshot calculado do Postgres
	WS       http.Handler  // nil = sem WebSocket
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/v1/markets", a.listMarkets)       // Lista mercados com totais
	r.Get("/v1/markets/{id}/pool", a.getPool) // Pool atual de um mercado
	if a.WS != nil {
		r.Handle("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) listMarkets(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be 1..500", Code: "INVALID_LIMIT"})
			return
		}
		limit = n
	}

	mk, err := a.ReadRepo.ListMarkets(r.Context(), limit)
	if err != nil {
		a.Log.Error("list markets", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: "INTERNAL"})
		return
	}
	if mk == nil {
		mk = []dto.MarketSummary{}
	}
	writeJSON(w, http.StatusOK, mk)
}

// getPool prefere o cache; erro de Redis não derruba a leitura
func (a *API) getPool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, ok, err := a.Cache.GetPool(r.Context(), id)
	if err != nil {
		a.Log.Warn("pool cache get failed", zap.String("marketId", id), zap.Error(err))
	}
	if ok {
		writeJSON(w, http.StatusOK, s)
		return
	}

	s, err = a.ReadRepo.GetPool(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "market not found", Code: "MARKET_NOT_FOUND"})
			return
		}
		a.Log.Error("get pool", zap.String("marketId", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: "INTERNAL"})
		return
	}

	if err := a.Cache.SetFallback(r.Context(), s, a.CacheTTL); err != nil {
		a.Log.Warn("pool cache set failed", zap.String("marketId", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, s)
}
