package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kushwahaamar-dev/truth/internal/pool-service/cache"
	phttp "github.com/kushwahaamar-dev/truth/internal/pool-service/http"
	"github.com/kushwahaamar-dev/truth/internal/pool-service/repo"
	"github.com/kushwahaamar-dev/truth/internal/pool-service/ws"
	sharedcache "github.com/kushwahaamar-dev/truth/internal/shared/cache"
	"github.com/kushwahaamar-dev/truth/internal/shared/config"
	"github.com/kushwahaamar-dev/truth/internal/shared/db"
	"github.com/kushwahaamar-dev/truth/internal/shared/logger"
	"github.com/kushwahaamar-dev/truth/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New("pool-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// conecta com db Postgres (tabelas do market-service, só leitura)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	// conecta com cache Redis
	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// WebSocket: updates do pool-projector chegam via Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &phttp.API{
		Log:      log,
		ReadRepo: &repo.ReadRepo{DB: pg},
		Cache:    cache.New(redisClient),
		CacheTTL: cfg.PoolCacheTTL,
		WS:       http.HandlerFunc(hub.HandleWS),
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// sobe servidor de métricas e health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("channel", cfg.RedisPubSubChannel))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return apiSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("pool-service stopped with error", zap.Error(err))
	}
	log.Info("pool-service stopped")
}
