package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mhttp "github.com/kushwahaamar-dev/truth/internal/market-service/http"
	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	"github.com/kushwahaamar-dev/truth/internal/market-service/producer"
	mrepo "github.com/kushwahaamar-dev/truth/internal/market-service/repo"
	"github.com/kushwahaamar-dev/truth/internal/market-service/wallet"
	"github.com/kushwahaamar-dev/truth/internal/shared/auth"
	"github.com/kushwahaamar-dev/truth/internal/shared/config"
	"github.com/kushwahaamar-dev/truth/internal/shared/db"
	"github.com/kushwahaamar-dev/truth/internal/shared/kafka"
	"github.com/kushwahaamar-dev/truth/internal/shared/logger"
	"github.com/kushwahaamar-dev/truth/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("market-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("store", cfg.MarketStore), zap.String("wallet", cfg.WalletURL))

	if cfg.CallerTokenSecret == "" {
		log.Fatal("CALLER_TOKEN_SECRET is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks := map[string]metrics.HealthFunc{}

	// Store: Postgres (padrão) ou memória para rodar local sem banco
	var store market.Store
	switch cfg.MarketStore {
	case "memory":
		store = market.NewMemoryStore()
		log.Warn("using in-memory market store; state is lost on restart")
	default:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()

		if err := db.RunMigrations(ctx, pg, mrepo.Migrations); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
		store = mrepo.NewPostgres(pg)
		checks["postgres"] = pg.PingContext
	}

	// Eventos de mercado: um writer, tópico por mensagem
	writer := kafka.NewWriter(cfg.KafkaBrokers, "")
	defer writer.Close()
	pub := producer.NewKafkaPublisher(writer, producer.Topics{
		Initialized: cfg.TopicMarketInitialized,
		BetPlaced:   cfg.TopicBetPlaced,
		Resolved:    cfg.TopicMarketResolved,
		Claimed:     cfg.TopicWinningsClaimed,
	})

	engine := market.NewEngine(log, store, wallet.New(cfg.WalletURL, cfg.EscrowServiceKey),
		market.WithPublisher(pub),
		market.WithMetrics(market.NewMetrics(prometheus.DefaultRegisterer)),
	)

	api := &mhttp.API{
		Log:         log,
		Engine:      engine,
		Verifier:    auth.NewVerifier(cfg.CallerTokenSecret, cfg.CallerTokenTTL),
		DefaultMint: cfg.DefaultMint,
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8083
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
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
		log.Fatal("market-service stopped with error", zap.Error(err))
	}
	log.Info("market-service stopped")
}
