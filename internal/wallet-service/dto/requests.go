package dto

type DepositRequest struct {
	Owner       string `json:"owner"`
	Mint        string `json:"mint"`
	Amount      uint64 `json:"amount"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

type OpenVaultRequest struct {
	Vault string `json:"vault"` // ex: market:btc-100k
	Mint  string `json:"mint"`
}

// TransferRequest move saldo entre contas do mesmo mint.
// Authority precisa ser o dono da conta de origem.
type TransferRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Mint        string `json:"mint"`
	Amount      uint64 `json:"amount"`
	ExternalRef string `json:"external_ref"` // ex: bet:<uuid>, claim:<market>:<user>
	Authority   string `json:"authority"`
}
