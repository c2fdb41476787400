package dto

type ClaimResponse struct {
	MarketID string `json:"marketId"`
	User     string `json:"user"`
	Payout   uint64 `json:"payout"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
