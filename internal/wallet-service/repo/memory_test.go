package repo

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestMemoryTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Deposit(ctx, "alice", "USDC", 100, "faucet-1"); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := m.OpenVault(ctx, "market:m1", "USDC"); err != nil {
		t.Fatalf("OpenVault: %v", err)
	}

	tr, err := m.Transfer(ctx, "alice", "market:m1", "USDC", 60, "bet:1", "alice")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if tr.FromBalance != 40 || tr.Duplicate {
		t.Errorf("transfer = %+v", tr)
	}

	// mesma ref: não move de novo
	again, err := m.Transfer(ctx, "alice", "market:m1", "USDC", 60, "bet:1", "alice")
	if err != nil || !again.Duplicate || again.ID != tr.ID {
		t.Errorf("retry = %+v, %v", again, err)
	}

	vault, _ := m.GetOrCreateWallet(ctx, "market:m1", "USDC")
	if vault.Balance != 60 || vault.Kind != KindVault {
		t.Errorf("vault = %+v", vault)
	}

	tests := []struct {
		name string
		from string
		to   string
		amt  uint64
		want error
	}{
		{"insufficient", "alice", "market:m1", 41, ErrInsufficientFunds},
		{"unknown source", "bob", "market:m1", 1, ErrInsufficientFunds},
		{"unknown destination", "alice", "carol", 41, ErrInsufficientFunds},
		{"same account", "alice", "alice", 1, ErrSameAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Transfer(ctx, tt.from, tt.to, "USDC", tt.amt, "x", tt.from); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMemoryFailedTransferLeavesNoWallet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.Deposit(ctx, "alice", "USDC", 10, "")

	if _, err := m.Transfer(ctx, "alice", "carol", "USDC", 11, "t1", "alice"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
	if _, err := m.Transfer(ctx, "nobody", "dave", "USDC", 1, "t2", "nobody"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
	for _, owner := range []string{"carol", "dave", "nobody"} {
		if _, ok := m.wallets[key(owner, "USDC")]; ok {
			t.Errorf("wallet %q created by a failed transfer", owner)
		}
	}
}

func TestMemoryTransferDestinationOverflow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.Deposit(ctx, "alice", "USDC", 10, "")
	_, _ = m.Deposit(ctx, "bob", "USDC", math.MaxUint64, "")

	if _, err := m.Transfer(ctx, "alice", "bob", "USDC", 1, "t1", "alice"); !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("err = %v, want %v", err, ErrBalanceOverflow)
	}
	a, _ := m.GetOrCreateWallet(ctx, "alice", "USDC")
	if a.Balance != 10 {
		t.Errorf("alice balance = %d, want 10", a.Balance)
	}
}

func TestMemoryDepositIdempotentAndBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, _ = m.Deposit(ctx, "alice", "USDC", 10, "ref")
	w, _ := m.Deposit(ctx, "alice", "USDC", 10, "ref")
	if w.Balance != 10 {
		t.Errorf("balance = %d, want 10", w.Balance)
	}

	if _, err := m.Deposit(ctx, "alice", "USDC", math.MaxUint64, ""); !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("err = %v, want %v", err, ErrBalanceOverflow)
	}
}
