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

	"github.com/kushwahaamar-dev/truth/internal/shared/config"
	"github.com/kushwahaamar-dev/truth/internal/shared/db"
	"github.com/kushwahaamar-dev/truth/internal/shared/logger"
	"github.com/kushwahaamar-dev/truth/internal/shared/metrics"
	whttp "github.com/kushwahaamar-dev/truth/internal/wallet-service/http"
	wrepo "github.com/kushwahaamar-dev/truth/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("wallet-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("store", cfg.WalletStore))

	if cfg.EscrowServiceKey == "" {
		log.Warn("ESCROW_SERVICE_KEY not set; vault and transfer routes are open")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks := map[string]metrics.HealthFunc{}

	var repo whttp.Repo
	switch cfg.WalletStore {
	case "memory":
		repo = wrepo.NewMemory()
		log.Warn("using in-memory wallet store; balances are lost on restart")
	default:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()

		if err := db.RunMigrations(ctx, pg, wrepo.Migrations); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
		repo = wrepo.NewPostgres(pg)
		checks["postgres"] = pg.PingContext
	}

	api := whttp.NewServer(log, repo, cfg.EscrowServiceKey, prometheus.DefaultRegisterer)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks) // ex: 9098

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
		log.Fatal("wallet-service stopped with error", zap.Error(err))
	}
	log.Info("wallet-service stopped")
}
