package ws

// ClientMsg é a mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type     string `json:"type"`     // subscribe | unsubscribe | ping
	MarketID string `json:"marketId"` // requerido em subscribe/unsubscribe
}

// PoolUpdate é o que chega pelo Redis Pub/Sub e segue para os inscritos do mercado
type PoolUpdate struct {
	MarketID string `json:"marketId"`
	Payload  any    `json:"payload"`
}
