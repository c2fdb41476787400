package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/topics"
)

// Cache lê o snapshot vivo gravado pelo pool-projector e guarda, com TTL, o
// snapshot calculado do Postgres quando o projector ainda não viu o mercado.
// As chaves são separadas para o fallback nunca servir de base para o projector.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyLive(marketID string) string     { return topics.PoolSnapshotKeyPrefix + marketID }
func keyFallback(marketID string) string { return "pool:fallback:" + marketID }

func (c *Cache) GetPool(ctx context.Context, marketID string) (*events.PoolSnapshot, bool, error) {
	for _, k := range []string{keyLive(marketID), keyFallback(marketID)} {
		s, ok, err := c.get(ctx, k)
		if err != nil || ok {
			return s, ok, err
		}
	}
	return nil, false, nil
}

func (c *Cache) SetFallback(ctx context.Context, s *events.PoolSnapshot, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyFallback(s.MarketID), b, ttl).Err()
}

func (c *Cache) get(ctx context.Context, key string) (*events.PoolSnapshot, bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s events.PoolSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false, err
	}
	return &s, true, nil
}
