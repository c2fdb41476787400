package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"

	"github.com/kushwahaamar-dev/truth/internal/pool-projector/projection"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/topics"
)

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type memStore struct {
	snaps  map[string]events.PoolSnapshot
	setErr error
}

func (s *memStore) Get(_ context.Context, id string) (*events.PoolSnapshot, error) {
	v, ok := s.snaps[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *memStore) Set(_ context.Context, snap *events.PoolSnapshot) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.snaps[snap.MarketID] = *snap
	return nil
}

func msg(t *testing.T, topic string, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Topic: topic, Value: b}
}

func newProcessor(t *testing.T, r MessageReader, s SnapshotStore) *Processor {
	return &Processor{
		Log:    zaptest.NewLogger(t),
		Reader: r,
		Store:  s,
		Topics: projection.Topics{
			Initialized: topics.MarketInitialized,
			BetPlaced:   topics.BetPlaced,
			Resolved:    topics.MarketResolved,
			Claimed:     topics.WinningsClaimed,
		},
		Now: func() time.Time { return time.Unix(0, 0) },
	}
}

func TestRunProjectsAndBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{
		msg(t, topics.MarketInitialized, events.MarketInitialized{MarketID: "m1", Mint: "USDC"}),
		msg(t, topics.BetPlaced, events.BetPlaced{MarketID: "m1", TotalYes: 300, TotalNo: 100}),
		{Topic: topics.BetPlaced, Value: []byte("not json")},
		{Topic: "healthcheck", Value: []byte(`{"ping":"ok"}`)},
	}}
	store := &memStore{snaps: map[string]events.PoolSnapshot{}}

	var consumed, applied int
	stages := map[string]int{}
	var broadcast []events.PoolSnapshot

	p := newProcessor(t, reader, store)
	p.OnConsumed = func() { consumed++ }
	p.OnApplied = func() { applied++ }
	p.OnError = func(stage string) { stages[stage]++ }
	p.OnAfterApply = func(s events.PoolSnapshot) { broadcast = append(broadcast, s) }

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if consumed != 4 || applied != 2 || stages["decode"] != 2 {
		t.Errorf("consumed=%d applied=%d stages=%v", consumed, applied, stages)
	}
	got := store.snaps["m1"]
	if got.TotalYes != 300 || got.YesBps != 7500 || got.Mint != "USDC" || got.Version != 2 {
		t.Errorf("snapshot = %+v", got)
	}
	if len(broadcast) != 2 || broadcast[1].Version != 2 {
		t.Errorf("broadcast = %+v", broadcast)
	}
}

func TestHandleCacheFailureSkipsBroadcast(t *testing.T) {
	store := &memStore{snaps: map[string]events.PoolSnapshot{}, setErr: errors.New("redis down")}
	p := newProcessor(t, nil, store)

	var failed string
	p.OnError = func(stage string) { failed = stage }
	p.OnAfterApply = func(events.PoolSnapshot) { t.Error("must not broadcast when cache write fails") }

	p.Handle(context.Background(), msg(t, topics.BetPlaced, events.BetPlaced{MarketID: "m1", TotalYes: 1}))
	if failed != "cache_set" {
		t.Errorf("stage = %q, want cache_set", failed)
	}
}
