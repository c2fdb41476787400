package market

import "context"

// Store persiste mercados e apostas. Update é a única via de escrita em um
// mercado existente: fn roda com o mercado travado (um writer por mercado) e
// as escritas só são aplicadas se fn retornar nil.
type Store interface {
	CreateMarket(ctx context.Context, m *Market) error
	GetMarket(ctx context.Context, id string) (*Market, error)
	ListMarkets(ctx context.Context, limit int) ([]Market, error)
	GetBet(ctx context.Context, marketID, user string) (*UserBet, error)
	ListBets(ctx context.Context, marketID string) ([]UserBet, error)
	Update(ctx context.Context, marketID string, fn func(Tx) error) error
}

// Tx é a visão transacional de um mercado travado
type Tx interface {
	Market() *Market
	Bet(ctx context.Context, user string) (*UserBet, error)
	PutMarket(ctx context.Context, m *Market) error
	PutBet(ctx context.Context, b *UserBet) error
}
