package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/kushwahaamar-dev/truth/internal/wallet-service/dto"
	"github.com/kushwahaamar-dev/truth/internal/wallet-service/repo"
)

const testKey = "svc-key"

func newTestServer(t *testing.T) (*Server, *repo.Memory) {
	t.Helper()
	mem := repo.NewMemory()
	return NewServer(zaptest.NewLogger(t), mem, testKey, prometheus.NewRegistry()), mem
}

func do(t *testing.T, h http.Handler, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTransfer(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Router()
	ctx := context.Background()
	_, _ = mem.Deposit(ctx, "alice", "USDC", 100, "")
	_, _ = mem.OpenVault(ctx, "market:m1", "USDC")

	tests := []struct {
		name     string
		req      dto.TransferRequest
		key      string
		wantCode int
		wantErr  string
	}{
		{
			name:     "ok",
			req:      dto.TransferRequest{From: "alice", To: "market:m1", Mint: "USDC", Amount: 30, ExternalRef: "bet:1", Authority: "alice"},
			key:      testKey,
			wantCode: http.StatusOK,
		},
		{
			name:     "missing service key",
			req:      dto.TransferRequest{From: "alice", To: "market:m1", Mint: "USDC", Amount: 30, ExternalRef: "bet:2", Authority: "alice"},
			wantCode: http.StatusUnauthorized,
			wantErr:  "UNAUTHORIZED",
		},
		{
			name:     "authority is not source owner",
			req:      dto.TransferRequest{From: "market:m1", To: "mallory", Mint: "USDC", Amount: 30, ExternalRef: "steal", Authority: "mallory"},
			key:      testKey,
			wantCode: http.StatusForbidden,
			wantErr:  "UNAUTHORIZED",
		},
		{
			name:     "insufficient funds",
			req:      dto.TransferRequest{From: "alice", To: "market:m1", Mint: "USDC", Amount: 71, ExternalRef: "bet:3", Authority: "alice"},
			key:      testKey,
			wantCode: http.StatusConflict,
			wantErr:  "INSUFFICIENT_FUNDS",
		},
		{
			name:     "zero amount",
			req:      dto.TransferRequest{From: "alice", To: "market:m1", Mint: "USDC", ExternalRef: "bet:4", Authority: "alice"},
			key:      testKey,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_PAYLOAD",
		},
		{
			name:     "never funded source",
			req:      dto.TransferRequest{From: "bob", To: "market:m1", Mint: "USDC", Amount: 1, ExternalRef: "bet:5", Authority: "bob"},
			key:      testKey,
			wantCode: http.StatusConflict,
			wantErr:  "INSUFFICIENT_FUNDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/wallet/transfer", tt.req, tt.key)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr == "" {
				return
			}
			var e dto.ErrorResponse
			_ = json.NewDecoder(rec.Body).Decode(&e)
			if e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
		})
	}

	vault, _ := mem.GetOrCreateWallet(ctx, "market:m1", "USDC")
	if vault.Balance != 30 {
		t.Errorf("vault balance = %d, want 30", vault.Balance)
	}
	if got := testutil.ToFloat64(s.transfers.WithLabelValues("forbidden")); got != 1 {
		t.Errorf("forbidden transfers = %v, want 1", got)
	}
}

func TestTransferDuplicate(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Router()
	_, _ = mem.Deposit(context.Background(), "alice", "USDC", 100, "")

	req := dto.TransferRequest{From: "alice", To: "bob", Mint: "USDC", Amount: 10, ExternalRef: "r1", Authority: "alice"}
	_ = do(t, h, http.MethodPost, "/wallet/transfer", req, testKey)
	rec := do(t, h, http.MethodPost, "/wallet/transfer", req, testKey)

	var out dto.TransferResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "DUPLICATE" || out.FromBalance != 90 {
		t.Errorf("response = %+v", out)
	}
}

func TestDepositAndGetWallet(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/wallet/deposit", dto.DepositRequest{Owner: "alice", Mint: "USDC", Amount: 500}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/wallet?owner=alice&mint=USDC", nil, "")
	var out dto.WalletResponse
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out.Balance != 500 || out.Kind != repo.KindUser {
		t.Errorf("wallet = %+v", out)
	}

	rec = do(t, h, http.MethodGet, "/wallet?owner=alice", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing mint status = %d, want 400", rec.Code)
	}
}

func TestOpenVaultNeedsServiceKey(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()

	body := dto.OpenVaultRequest{Vault: "market:m1", Mint: "USDC"}
	if rec := do(t, h, http.MethodPost, "/wallet/vaults", body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/wallet/vaults", body, testKey)
	var out dto.WalletResponse
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if rec.Code != http.StatusOK || out.Kind != repo.KindVault {
		t.Errorf("status = %d, wallet = %+v", rec.Code, out)
	}
}
