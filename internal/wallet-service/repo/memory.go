package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory é a versão em memória do repo (testes e ambiente local sem Postgres).
// Mesmas regras do Postgres: idempotência por (origem, ref) e saldo nunca negativo.
type Memory struct {
	mu        sync.Mutex
	wallets   map[string]*Wallet // chave owner|mint
	transfers map[string]*Transfer
	deposits  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		wallets:   make(map[string]*Wallet),
		transfers: make(map[string]*Transfer),
		deposits:  make(map[string]bool),
	}
}

func key(owner, mint string) string { return owner + "|" + mint }

func (m *Memory) getOrCreate(owner, mint, kind string) *Wallet {
	w, ok := m.wallets[key(owner, mint)]
	if !ok {
		w = &Wallet{ID: uuid.New().String(), Owner: owner, Mint: mint, Kind: kind}
		m.wallets[key(owner, mint)] = w
	}
	return w
}

func (m *Memory) GetOrCreateWallet(_ context.Context, owner, mint string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := *m.getOrCreate(owner, mint, KindUser)
	return &w, nil
}

func (m *Memory) OpenVault(_ context.Context, vault, mint string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := *m.getOrCreate(vault, mint, KindVault)
	return &w, nil
}

func (m *Memory) Deposit(_ context.Context, owner, mint string, amount uint64, externalRef string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.getOrCreate(owner, mint, KindUser)
	k := w.ID + "|" + externalRef
	if externalRef != "" && m.deposits[k] {
		out := *w
		return &out, nil
	}
	if w.Balance+amount < w.Balance {
		return nil, ErrBalanceOverflow
	}
	w.Balance += amount
	if externalRef != "" {
		m.deposits[k] = true
	}
	out := *w
	return &out, nil
}

func (m *Memory) Transfer(_ context.Context, from, to, mint string, amount uint64, externalRef, _ string) (*Transfer, error) {
	if from == to {
		return nil, ErrSameAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// origem inexistente = saldo zero
	src, ok := m.wallets[key(from, mint)]
	if !ok {
		return nil, ErrInsufficientFunds
	}

	tk := src.ID + "|" + externalRef
	if t, ok := m.transfers[tk]; ok {
		dup := *t
		dup.Duplicate = true
		dup.FromBalance = src.Balance
		return &dup, nil
	}

	if src.Balance < amount {
		return nil, ErrInsufficientFunds
	}
	if dst, ok := m.wallets[key(to, mint)]; ok && dst.Balance+amount < dst.Balance {
		return nil, ErrBalanceOverflow
	}

	// destino só é criado depois de todas as checagens
	dst := m.getOrCreate(to, mint, KindUser)
	src.Balance -= amount
	dst.Balance += amount

	t := &Transfer{
		ID:          uuid.New().String(),
		From:        from,
		To:          to,
		Mint:        mint,
		Amount:      amount,
		ExternalRef: externalRef,
		FromBalance: src.Balance,
	}
	m.transfers[tk] = t
	out := *t
	return &out, nil
}
