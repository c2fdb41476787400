package events

// Eventos do ciclo de vida de um mercado, publicados pelo market-service
// depois do commit. Todos carregam os totais do pool já atualizados, então o
// consumidor consegue projetar o estado sem consultar o banco.

type MarketInitialized struct {
	MarketID  string `json:"market_id"`
	Authority string `json:"authority"`
	Mint      string `json:"mint"`
	Vault     string `json:"vault"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

type BetPlaced struct {
	MarketID      string `json:"market_id"`
	User          string `json:"user"`
	Amount        uint64 `json:"amount"`
	SideYes       bool   `json:"side_yes"`
	UserAmountYes uint64 `json:"user_amount_yes"`
	UserAmountNo  uint64 `json:"user_amount_no"`
	TotalYes      uint64 `json:"total_yes"`
	TotalNo       uint64 `json:"total_no"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}

type MarketResolved struct {
	MarketID  string `json:"market_id"`
	Authority string `json:"authority"`
	Outcome   string `json:"outcome"` // "YES" | "NO"
	TotalYes  uint64 `json:"total_yes"`
	TotalNo   uint64 `json:"total_no"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

type WinningsClaimed struct {
	MarketID string `json:"market_id"`
	User     string `json:"user"`
	Payout   uint64 `json:"payout"`
	TotalYes uint64 `json:"total_yes"`
	TotalNo  uint64 `json:"total_no"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
