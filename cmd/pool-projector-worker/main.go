package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kushwahaamar-dev/truth/internal/pool-projector/cache"
	"github.com/kushwahaamar-dev/truth/internal/pool-projector/consumer"
	"github.com/kushwahaamar-dev/truth/internal/pool-projector/projection"
	"github.com/kushwahaamar-dev/truth/internal/pool-projector/pubsub"
	sharedcache "github.com/kushwahaamar-dev/truth/internal/shared/cache"
	"github.com/kushwahaamar-dev/truth/internal/shared/config"
	"github.com/kushwahaamar-dev/truth/internal/shared/kafka"
	"github.com/kushwahaamar-dev/truth/internal/shared/logger"
	"github.com/kushwahaamar-dev/truth/internal/shared/metrics"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("pool-projector", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// snapshot vivo: sem TTL
	rcache := cache.NewRedisCache(redisClient, 0)

	// Consumer group pool-projector em todos os tópicos de mercado
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, cfg.MarketTopics(), "pool-projector")
	defer reader.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_proj_messages_consumed_total", Help: "mensagens consumidas"})
	applied := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_proj_snapshots_applied_total", Help: "snapshots gravados no cache"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pool_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, applied, errorsBy)

	broadcaster := pubsub.NewRedisBroadcaster(redisClient)

	proc := &consumer.Processor{
		Log:    log,
		Reader: reader,
		Store:  rcache,
		Topics: projection.Topics{
			Initialized: cfg.TopicMarketInitialized,
			BetPlaced:   cfg.TopicBetPlaced,
			Resolved:    cfg.TopicMarketResolved,
			Claimed:     cfg.TopicWinningsClaimed,
		},
		OnConsumed: func() { consumed.Inc() },
		OnApplied:  func() { applied.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após gravar o snapshot, avisa o WebSocket do pool-service via Redis Pub/Sub
		OnAfterApply: func(s events.PoolSnapshot) {
			b, _ := json.Marshal(pubsub.WSUpdate{MarketID: s.MarketID, Payload: s})

			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := broadcaster.Publish(ctx, cfg.RedisPubSubChannel, b); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
				errorsBy.WithLabelValues("broadcast").Inc()
			}
		},
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, map[string]metrics.HealthFunc{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("pool-projector started", zap.Strings("topics", cfg.MarketTopics()))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("pool-projector stopped")
}
