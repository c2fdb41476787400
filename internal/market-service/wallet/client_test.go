package wallet

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	whttp "github.com/kushwahaamar-dev/truth/internal/wallet-service/http"
	wrepo "github.com/kushwahaamar-dev/truth/internal/wallet-service/repo"
)

func newWallet(t *testing.T, key string) (*Client, *wrepo.Memory) {
	t.Helper()
	mem := wrepo.NewMemory()
	srv := httptest.NewServer(whttp.NewServer(zaptest.NewLogger(t), mem, key, prometheus.NewRegistry()).Router())
	t.Cleanup(srv.Close)
	return New(srv.URL, key), mem
}

func TestClientAgainstWalletService(t *testing.T) {
	ctx := context.Background()
	c, mem := newWallet(t, "k")
	_, _ = mem.Deposit(ctx, "alice", "USDC", 100, "")

	if err := c.OpenVault(ctx, market.VaultFor("m1"), "USDC"); err != nil {
		t.Fatalf("OpenVault: %v", err)
	}
	if err := c.Deposit(ctx, "alice", market.VaultFor("m1"), "USDC", 80, "bet:1"); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := c.Deposit(ctx, "alice", market.VaultFor("m1"), "USDC", 80, "bet:2"); !errors.Is(err, market.ErrInsufficientFunds) {
		t.Errorf("err = %v, want %v", err, market.ErrInsufficientFunds)
	}

	// grant zero-value não saca nada
	if err := c.Withdraw(ctx, market.VaultGrant{}, "alice", "USDC", 10, "claim:m1:alice"); !errors.Is(err, market.ErrUnauthorized) {
		t.Errorf("err = %v, want %v", err, market.ErrUnauthorized)
	}

	vault, _ := mem.GetOrCreateWallet(ctx, "market:m1", "USDC")
	if vault.Balance != 80 {
		t.Errorf("vault balance = %d, want 80", vault.Balance)
	}
}

func TestClientWrongServiceKey(t *testing.T) {
	c, _ := newWallet(t, "right")
	c.ServiceKey = "wrong"
	if err := c.OpenVault(context.Background(), "market:m1", "USDC"); err == nil {
		t.Fatal("expected error with wrong service key")
	}
}

func TestEngineOverWalletService(t *testing.T) {
	ctx := context.Background()
	c, mem := newWallet(t, "k")
	for _, u := range []string{"a", "b", "c"} {
		_, _ = mem.Deposit(ctx, u, "USDC", 1000, "")
	}

	e := market.NewEngine(zaptest.NewLogger(t), market.NewMemoryStore(), c)
	if _, err := e.InitializeMarket(ctx, "m1", "admin", "USDC"); err != nil {
		t.Fatalf("InitializeMarket: %v", err)
	}
	for _, b := range []struct {
		user string
		amt  uint64
		yes  bool
	}{{"a", 100, true}, {"b", 200, true}, {"c", 100, false}} {
		if _, err := e.PlaceBet(ctx, "m1", b.user, b.amt, b.yes); err != nil {
			t.Fatalf("PlaceBet(%s): %v", b.user, err)
		}
	}
	if _, err := e.ResolveMarket(ctx, "m1", "admin", true); err != nil {
		t.Fatalf("ResolveMarket: %v", err)
	}

	if p, err := e.ClaimWinnings(ctx, "m1", "b"); err != nil || p != 266 {
		t.Fatalf("claim b = %d, %v", p, err)
	}
	if _, err := e.ClaimWinnings(ctx, "m1", "c"); !errors.Is(err, market.ErrNoWinningStake) {
		t.Errorf("err = %v, want %v", err, market.ErrNoWinningStake)
	}

	b, _ := mem.GetOrCreateWallet(ctx, "b", "USDC")
	if b.Balance != 1066 {
		t.Errorf("b balance = %d, want 1066", b.Balance)
	}
}

func TestEngineOverWalletUnfundedBettor(t *testing.T) {
	ctx := context.Background()
	c, _ := newWallet(t, "k")
	store := market.NewMemoryStore()
	e := market.NewEngine(zaptest.NewLogger(t), store, c)
	if _, err := e.InitializeMarket(ctx, "m1", "admin", "USDC"); err != nil {
		t.Fatalf("InitializeMarket: %v", err)
	}

	// "newbie" nunca recebeu depósito: não há wallet de origem
	_, err := e.PlaceBet(ctx, "m1", "newbie", 10, true)
	if !errors.Is(err, market.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, market.ErrInsufficientFunds)
	}
	if got := market.Code(err); got != "INSUFFICIENT_FUNDS" {
		t.Errorf("code = %q, want INSUFFICIENT_FUNDS", got)
	}

	m, _ := store.GetMarket(ctx, "m1")
	if m.TotalYes != 0 || m.TotalNo != 0 {
		t.Errorf("totals = %d/%d, want 0/0", m.TotalYes, m.TotalNo)
	}
	if _, err := store.GetBet(ctx, "m1", "newbie"); !errors.Is(err, market.ErrBetNotFound) {
		t.Errorf("bet must not exist, got %v", err)
	}
}
