package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal do pool-projector e repassa cada
// atualização para os clientes WebSocket inscritos no mercado.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := dispatch(hub, msg.Payload); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
				}
			}
		}
	}()
}

func dispatch(hub *Hub, payload string) error {
	var upd PoolUpdate
	if err := json.Unmarshal([]byte(payload), &upd); err != nil {
		return err
	}
	hub.Broadcast(upd)
	return nil
}
