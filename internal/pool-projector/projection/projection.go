package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

var ErrUnknownTopic = errors.New("unknown topic")

type Topics struct {
	Initialized string
	BetPlaced   string
	Resolved    string
	Claimed     string
}

// Event é um evento de mercado já decodificado, pronto para ser aplicado
type Event struct {
	MarketID string
	apply    func(s *events.PoolSnapshot)
}

// Decode interpreta a mensagem conforme o tópico de origem
func Decode(t Topics, topic string, value []byte) (Event, error) {
	switch topic {
	case t.Initialized:
		var ev events.MarketInitialized
		if err := json.Unmarshal(value, &ev); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", topic, err)
		}
		return Event{MarketID: ev.MarketID, apply: func(s *events.PoolSnapshot) {
			s.Mint = ev.Mint
		}}, nil

	case t.BetPlaced:
		var ev events.BetPlaced
		if err := json.Unmarshal(value, &ev); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", topic, err)
		}
		return Event{MarketID: ev.MarketID, apply: func(s *events.PoolSnapshot) {
			setTotals(s, ev.TotalYes, ev.TotalNo)
		}}, nil

	case t.Resolved:
		var ev events.MarketResolved
		if err := json.Unmarshal(value, &ev); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", topic, err)
		}
		return Event{MarketID: ev.MarketID, apply: func(s *events.PoolSnapshot) {
			setTotals(s, ev.TotalYes, ev.TotalNo)
			s.Resolved = true
			s.Outcome = ev.Outcome
		}}, nil

	case t.Claimed:
		var ev events.WinningsClaimed
		if err := json.Unmarshal(value, &ev); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", topic, err)
		}
		return Event{MarketID: ev.MarketID, apply: func(s *events.PoolSnapshot) {
			setTotals(s, ev.TotalYes, ev.TotalNo)
			if ev.User != "" {
				i, seen := slices.BinarySearch(s.ClaimedBy, ev.User)
				if seen {
					return
				}
				s.ClaimedBy = slices.Insert(s.ClaimedBy, i, ev.User)
			}
			s.Claims++
			s.PaidOut += ev.Payout
		}}, nil
	}
	return Event{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// Apply dobra o evento sobre o snapshot anterior (nil = mercado ainda não visto)
func Apply(prev *events.PoolSnapshot, ev Event, now time.Time) *events.PoolSnapshot {
	s := events.PoolSnapshot{MarketID: ev.MarketID, YesBps: 5000, NoBps: 5000}
	if prev != nil {
		s = *prev
		s.ClaimedBy = slices.Clone(prev.ClaimedBy)
	}
	ev.apply(&s)
	s.Version++
	s.UpdatedAt = now
	return &s
}

// totais nunca diminuem; um evento atrasado não volta o pool
func setTotals(s *events.PoolSnapshot, yes, no uint64) {
	if yes < s.TotalYes || no < s.TotalNo {
		return
	}
	s.TotalYes, s.TotalNo = yes, no
	s.YesBps, s.NoBps = market.ImpliedBps(yes, no)
}
