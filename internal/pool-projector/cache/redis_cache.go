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

// RedisCache guarda o snapshot corrente do pool de cada mercado.
// TTL 0 = sem expiração (o projector é a fonte do snapshot vivo).
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

func key(marketID string) string { return topics.PoolSnapshotKeyPrefix + marketID }

// Get devolve (nil, nil) quando o mercado ainda não tem snapshot
func (r *RedisCache) Get(ctx context.Context, marketID string) (*events.PoolSnapshot, error) {
	b, err := r.Client.Get(ctx, key(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s events.PoolSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisCache) Set(ctx context.Context, s *events.PoolSnapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(s.MarketID), b, r.TTL).Err()
}
