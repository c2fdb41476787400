package dto

type CreateMarketRequest struct {
	MarketID string `json:"marketId"`
	Mint     string `json:"mint,omitempty"` // vazio usa DEFAULT_MINT
}

// PlaceBetRequest: sideYes é obrigatório, por isso ponteiro
type PlaceBetRequest struct {
	Amount  uint64 `json:"amount"`
	SideYes *bool  `json:"sideYes"`
}

type ResolveRequest struct {
	OutcomeYes *bool `json:"outcomeYes"`
}
