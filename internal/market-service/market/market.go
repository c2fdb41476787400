package market

import "time"

// MaxExternalIDLen é o limite, em bytes, do id externo de um mercado
const MaxExternalIDLen = 50

type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

func OutcomeFrom(yes bool) Outcome {
	if yes {
		return OutcomeYes
	}
	return OutcomeNo
}

type Market struct {
	ExternalID string     `json:"marketId"`
	Authority  string     `json:"authority"`
	VaultMint  string     `json:"mint"`
	Vault      string     `json:"vault"`
	TotalYes   uint64     `json:"totalYes"`
	TotalNo    uint64     `json:"totalNo"`
	Resolved   bool       `json:"resolved"`
	Outcome    *Outcome   `json:"outcome,omitempty"` // nil enquanto aberto
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// Pool = totalYes + totalNo. PlaceBet garante que a soma nunca estoura.
func (m *Market) Pool() uint64 {
	return m.TotalYes + m.TotalNo
}

// WinningTotal devolve o total do lado vencedor; só faz sentido depois de resolvido
func (m *Market) WinningTotal() uint64 {
	if m.Outcome != nil && *m.Outcome == OutcomeYes {
		return m.TotalYes
	}
	return m.TotalNo
}

func (m *Market) clone() *Market {
	c := *m
	if m.Outcome != nil {
		o := *m.Outcome
		c.Outcome = &o
	}
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// UserBet é a posição de um usuário num mercado. Uma por (mercado, usuário).
type UserBet struct {
	MarketID  string     `json:"marketId"`
	Owner     string     `json:"owner"`
	AmountYes uint64     `json:"amountYes"`
	AmountNo  uint64     `json:"amountNo"`
	Claimed   bool       `json:"claimed"`
	Payout    uint64     `json:"payout"`
	CreatedAt time.Time  `json:"createdAt"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
}

// WinningAmount devolve o stake do usuário no lado que venceu
func (b *UserBet) WinningAmount(o Outcome) uint64 {
	if o == OutcomeYes {
		return b.AmountYes
	}
	return b.AmountNo
}

func (b *UserBet) clone() *UserBet {
	c := *b
	if b.ClaimedAt != nil {
		t := *b.ClaimedAt
		c.ClaimedAt = &t
	}
	return &c
}

// VaultFor é a conta de custódia do mercado na wallet; o dono é o próprio mercado.
func VaultFor(marketID string) string {
	return "market:" + marketID
}

// VaultGrant é a capacidade de sacar do vault de um mercado.
// Só o Engine cria grants válidos.
type VaultGrant struct {
	vault string
}

func (g VaultGrant) Vault() string { return g.vault }

func (g VaultGrant) Valid() bool { return g.vault != "" }
