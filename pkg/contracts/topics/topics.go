package topics

const (
	// Ciclo de vida do mercado
	MarketInitialized = "market_initialized"
	BetPlaced         = "market_bet_placed"
	MarketResolved    = "market_resolved"
	WinningsClaimed   = "market_winnings_claimed"

	// Redis Pub/Sub (projector -> pool-service/ws)
	PoolBroadcast = "pool_updates_broadcast"
)

// Chave Redis do snapshot de pool de um mercado (projector grava, pool-service lê)
const PoolSnapshotKeyPrefix = "pool:snapshot:"
