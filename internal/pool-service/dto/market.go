package dto

// MarketSummary é a linha da listagem de mercados
type MarketSummary struct {
	MarketID  string `json:"marketId"`
	Mint      string `json:"mint"`
	TotalYes  uint64 `json:"totalYes"`
	TotalNo   uint64 `json:"totalNo"`
	YesBps    uint32 `json:"yesBps"`
	NoBps     uint32 `json:"noBps"`
	Resolved  bool   `json:"resolved"`
	Outcome   string `json:"outcome,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
