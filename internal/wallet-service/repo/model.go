package repo

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrSameAccount       = errors.New("transfer to same account")
)

const (
	KindUser  = "USER"
	KindVault = "VAULT"
)

// Wallet é uma conta por (owner, mint). Vaults de mercado usam owner "market:<id>".
type Wallet struct {
	ID      string
	Owner   string
	Mint    string
	Kind    string
	Balance uint64
}

// Transfer é o resultado de uma transferência. Duplicate indica que a
// external_ref já tinha sido processada e nada foi movido desta vez.
type Transfer struct {
	ID          string
	From        string
	To          string
	Mint        string
	Amount      uint64
	ExternalRef string
	FromBalance uint64
	Duplicate   bool
}
