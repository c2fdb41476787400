package events

import "time"

// Projeção do pool de um mercado, gravada no Redis pelo pool-projector-worker
// e repassada aos clientes WS pelo pool-service.
type PoolSnapshot struct {
	MarketID  string    `json:"market_id"`
	Mint      string    `json:"mint,omitempty"`
	TotalYes  uint64    `json:"total_yes"`
	TotalNo   uint64    `json:"total_no"`
	YesBps    uint32    `json:"yes_bps"` // probabilidade implícita do Yes, 0..10000
	NoBps     uint32    `json:"no_bps"`
	Resolved  bool      `json:"resolved"`
	Outcome   string    `json:"outcome,omitempty"`
	Claims    int64     `json:"claims"`
	PaidOut   uint64    `json:"paid_out"`
	Version   int64     `json:"version"` // incrementado a cada evento aplicado
	UpdatedAt time.Time `json:"updated_at"`

	// usuários que já sacaram, ordenados; um claim reentregue não conta de novo
	ClaimedBy []string `json:"claimed_by,omitempty"`
}
