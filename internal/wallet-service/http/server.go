package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/shared/auth"
	"github.com/kushwahaamar-dev/truth/internal/wallet-service/dto"
	"github.com/kushwahaamar-dev/truth/internal/wallet-service/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, owner, mint string) (*repo.Wallet, error)
	OpenVault(ctx context.Context, vault, mint string) (*repo.Wallet, error)
	Deposit(ctx context.Context, owner, mint string, amount uint64, externalRef string) (*repo.Wallet, error)
	Transfer(ctx context.Context, from, to, mint string, amount uint64, externalRef, authority string) (*repo.Transfer, error)
}

var errForbidden = errors.New("authority does not own source account")

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log        *zap.Logger
	repo       Repo
	serviceKey string
	transfers  *prometheus.CounterVec
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo, serviceKey string, reg prometheus.Registerer) *Server {
	s := &Server{
		log:        log,
		repo:       repo,
		serviceKey: serviceKey,
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "transferências por resultado",
		}, []string{"result"}),
	}
	reg.MustRegister(s.transfers)
	return s
}

// Router retorna o mux HTTP com as rotas da API de wallet.
// Vaults e transferências só via chave de serviço (market-service).
func (s *Server) Router() http.Handler {
	svc := auth.ServiceKey(s.serviceKey)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.getWallet)        // ?owner=...&mint=...
	mux.HandleFunc("POST /wallet/deposit", s.deposit) // faucet
	mux.Handle("POST /wallet/vaults", svc(http.HandlerFunc(s.openVault)))
	mux.Handle("POST /wallet/transfer", svc(http.HandlerFunc(s.transfer)))
	return mux
}

// getWallet retorna (ou cria) a conta e saldo
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	owner, mint := r.URL.Query().Get("owner"), r.URL.Query().Get("mint")
	if owner == "" || mint == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "owner and mint required")
		return
	}
	wal, err := s.repo.GetOrCreateWallet(r.Context(), owner, mint)
	if err != nil {
		s.fail(w, "get wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse(wal))
}

// deposit adiciona saldo externo à conta
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	if req.Owner == "" || req.Mint == "" || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "owner, mint and amount required")
		return
	}
	wal, err := s.repo.Deposit(r.Context(), req.Owner, req.Mint, req.Amount, req.ExternalRef)
	if err != nil {
		s.fail(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse(wal))
}

// openVault cria (idempotente) a conta de custódia de um mercado
func (s *Server) openVault(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	if req.Vault == "" || req.Mint == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "vault and mint required")
		return
	}
	wal, err := s.repo.OpenVault(r.Context(), req.Vault, req.Mint)
	if err != nil {
		s.fail(w, "open vault", err)
		return
	}
	s.log.Info("vault opened", zap.String("vault", req.Vault), zap.String("mint", req.Mint))
	writeJSON(w, http.StatusOK, walletResponse(wal))
}

// transfer debita a origem e credita o destino; o débito exige authority == from
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "bad json")
		return
	}
	if err := validateTransfer(req); err != nil {
		s.transfers.WithLabelValues(resultOf(err)).Inc()
		if errors.Is(err, errForbidden) {
			s.log.Warn("transfer rejected", zap.String("from", req.From), zap.String("authority", req.Authority))
			writeError(w, http.StatusForbidden, "UNAUTHORIZED", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	t, err := s.repo.Transfer(r.Context(), req.From, req.To, req.Mint, req.Amount, req.ExternalRef, req.Authority)
	s.transfers.WithLabelValues(resultOf(err)).Inc()
	if err != nil {
		s.fail(w, "transfer", err)
		return
	}

	status := "COMPLETED"
	if t.Duplicate {
		status = "DUPLICATE"
	}
	s.log.Info("transfer",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Uint64("amount", req.Amount),
		zap.String("ref", req.ExternalRef),
		zap.String("status", status),
	)
	writeJSON(w, http.StatusOK, dto.TransferResponse{TransferID: t.ID, Status: status, FromBalance: t.FromBalance})
}

func validateTransfer(req dto.TransferRequest) error {
	switch {
	case req.From == "" || req.To == "" || req.Mint == "":
		return errors.New("from, to and mint required")
	case req.Amount == 0:
		return errors.New("amount must be positive")
	case req.ExternalRef == "":
		return errors.New("external_ref required")
	case req.Authority != req.From:
		return errForbidden
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errForbidden):
		return "forbidden"
	case errors.Is(err, repo.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, repo.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// fail traduz erros do repo para status + código estável
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "wallet not found")
	case errors.Is(err, repo.ErrBalanceOverflow):
		writeError(w, http.StatusUnprocessableEntity, "ARITHMETIC_OVERFLOW", err.Error())
	case errors.Is(err, repo.ErrSameAccount):
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
	default:
		s.log.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func walletResponse(w *repo.Wallet) dto.WalletResponse {
	return dto.WalletResponse{Owner: w.Owner, Mint: w.Mint, WalletID: w.ID, Kind: w.Kind, Balance: w.Balance}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
