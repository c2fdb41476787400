package consumer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/pool-projector/projection"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type SnapshotStore interface {
	Get(ctx context.Context, marketID string) (*events.PoolSnapshot, error)
	Set(ctx context.Context, s *events.PoolSnapshot) error
}

// Processor consome os eventos de mercado do Kafka, dobra cada um no snapshot
// do pool e grava no Redis. Callbacks de métricas por etapa.
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Store  SnapshotStore
	Topics projection.Topics
	Now    func() time.Time

	OnConsumed   func()                    // métricas (counter++)
	OnApplied    func()                    // métricas
	OnError      func(string)              // métricas por fase
	OnAfterApply func(events.PoolSnapshot) // broadcast
}

// Run inicia o loop principal de consumo
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem. Erros são logados e contados; a mensagem não volta.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	ev, err := projection.Decode(p.Topics, m.Topic, m.Value)
	if err != nil {
		p.Log.Warn("invalid message", zap.String("topic", m.Topic), zap.Error(err))
		p.fail("decode")
		return
	}

	prev, err := p.Store.Get(ctx, ev.MarketID)
	if err != nil {
		p.Log.Warn("snapshot get failed", zap.String("marketId", ev.MarketID), zap.Error(err))
		p.fail("cache_get")
		return
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	next := projection.Apply(prev, ev, now().UTC())

	if err := p.Store.Set(ctx, next); err != nil {
		p.Log.Warn("snapshot set failed", zap.String("marketId", ev.MarketID), zap.Error(err))
		p.fail("cache_set")
		return
	}
	if p.OnApplied != nil {
		p.OnApplied()
	}

	p.Log.Debug("pool projected",
		zap.String("marketId", next.MarketID),
		zap.Uint64("totalYes", next.TotalYes),
		zap.Uint64("totalNo", next.TotalNo),
		zap.Int64("version", next.Version),
	)

	if p.OnAfterApply != nil {
		p.OnAfterApply(*next)
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
