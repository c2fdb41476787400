package market

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore guarda tudo em memória (MARKET_STORE=memory e testes).
// Escritas de um Update ficam em staging e só entram no mapa no final.
type MemoryStore struct {
	mu      sync.RWMutex
	markets map[string]*Market
	order   []string
	bets    map[string]map[string]*UserBet

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets: make(map[string]*Market),
		bets:    make(map[string]map[string]*UserBet),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ExternalID]; ok {
		return ErrMarketAlreadyExists
	}
	s.markets[m.ExternalID] = m.clone()
	s.order = append(s.order, m.ExternalID)
	s.bets[m.ExternalID] = make(map[string]*UserBet)
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m.clone(), nil
}

// ListMarkets devolve os mais recentes primeiro
func (s *MemoryStore) ListMarkets(_ context.Context, limit int) ([]Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Market, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *s.markets[s.order[i]].clone())
	}
	return out, nil
}

func (s *MemoryStore) GetBet(_ context.Context, marketID, user string) (*UserBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.markets[marketID]; !ok {
		return nil, ErrMarketNotFound
	}
	b, ok := s.bets[marketID][user]
	if !ok {
		return nil, ErrBetNotFound
	}
	return b.clone(), nil
}

func (s *MemoryStore) ListBets(_ context.Context, marketID string) ([]UserBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.markets[marketID]; !ok {
		return nil, ErrMarketNotFound
	}
	out := make([]UserBet, 0, len(s.bets[marketID]))
	for _, b := range s.bets[marketID] {
		out = append(out, *b.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, marketID string, fn func(Tx) error) error {
	lock := s.lockFor(marketID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.GetMarket(ctx, marketID)
	if err != nil {
		return err
	}

	tx := &memTx{store: s, market: m, staged: make(map[string]*UserBet)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.dirty {
		s.markets[marketID] = tx.market.clone()
	}
	for user, b := range tx.staged {
		s.bets[marketID][user] = b.clone()
	}
	return nil
}

func (s *MemoryStore) lockFor(marketID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[marketID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[marketID] = l
	}
	return l
}

type memTx struct {
	store  *MemoryStore
	market *Market
	dirty  bool
	staged map[string]*UserBet
}

func (tx *memTx) Market() *Market { return tx.market }

func (tx *memTx) Bet(ctx context.Context, user string) (*UserBet, error) {
	if b, ok := tx.staged[user]; ok {
		return b.clone(), nil
	}
	return tx.store.GetBet(ctx, tx.market.ExternalID, user)
}

func (tx *memTx) PutMarket(_ context.Context, m *Market) error {
	tx.market = m.clone()
	tx.dirty = true
	return nil
}

func (tx *memTx) PutBet(_ context.Context, b *UserBet) error {
	tx.staged[b.Owner] = b.clone()
	return nil
}
