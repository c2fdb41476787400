package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Topics struct {
	Initialized string
	BetPlaced   string
	Resolved    string
	Claimed     string
}

// KafkaPublisher implementa market.Publisher. Um writer só, tópico por mensagem,
// chave = marketId para manter a ordem por mercado.
type KafkaPublisher struct {
	Writer messageWriter
	Topics Topics
	now    func() time.Time
}

var _ market.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(w messageWriter, t Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: t, now: time.Now}
}

func (p *KafkaPublisher) PublishMarketInitialized(ctx context.Context, m market.Market) error {
	return p.write(ctx, p.Topics.Initialized, m.ExternalID, events.MarketInitialized{
		MarketID:  m.ExternalID,
		Authority: m.Authority,
		Mint:      m.VaultMint,
		Vault:     m.Vault,
		TsUnixMs:  p.now().UnixMilli(),
	})
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, m market.Market, b market.UserBet, amount uint64, sideYes bool) error {
	return p.write(ctx, p.Topics.BetPlaced, m.ExternalID, events.BetPlaced{
		MarketID:      m.ExternalID,
		User:          b.Owner,
		Amount:        amount,
		SideYes:       sideYes,
		UserAmountYes: b.AmountYes,
		UserAmountNo:  b.AmountNo,
		TotalYes:      m.TotalYes,
		TotalNo:       m.TotalNo,
		TsUnixMs:      p.now().UnixMilli(),
	})
}

func (p *KafkaPublisher) PublishMarketResolved(ctx context.Context, m market.Market) error {
	var outcome string
	if m.Outcome != nil {
		outcome = string(*m.Outcome)
	}
	return p.write(ctx, p.Topics.Resolved, m.ExternalID, events.MarketResolved{
		MarketID:  m.ExternalID,
		Authority: m.Authority,
		Outcome:   outcome,
		TotalYes:  m.TotalYes,
		TotalNo:   m.TotalNo,
		TsUnixMs:  p.now().UnixMilli(),
	})
}

func (p *KafkaPublisher) PublishWinningsClaimed(ctx context.Context, m market.Market, b market.UserBet) error {
	return p.write(ctx, p.Topics.Claimed, m.ExternalID, events.WinningsClaimed{
		MarketID: m.ExternalID,
		User:     b.Owner,
		Payout:   b.Payout,
		TotalYes: m.TotalYes,
		TotalNo:  m.TotalNo,
		TsUnixMs: p.now().UnixMilli(),
	})
}

func (p *KafkaPublisher) write(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  p.now(),
	})
}
