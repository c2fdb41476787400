package dto

type WalletResponse struct {
	Owner    string `json:"owner"`
	Mint     string `json:"mint"`
	WalletID string `json:"walletId"`
	Kind     string `json:"kind"`
	Balance  uint64 `json:"balance"`
}

type TransferResponse struct {
	TransferID  string `json:"transfer_id"`
	Status      string `json:"status"` // "COMPLETED" | "DUPLICATE"
	FromBalance uint64 `json:"from_balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
