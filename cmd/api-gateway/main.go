package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	gateway "github.com/kushwahaamar-dev/truth/internal/api-gateway"
	"github.com/kushwahaamar-dev/truth/internal/shared/config"
	"github.com/kushwahaamar-dev/truth/internal/shared/logger"
	"github.com/kushwahaamar-dev/truth/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("api-gateway", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.NewHandler(gateway.Targets{
		Market: cfg.MarketURL,
		Wallet: cfg.WalletURL,
		Pool:   cfg.PoolURL,
	}, log)
	if err != nil {
		log.Fatal("gateway config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, nil)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("market", cfg.MarketURL),
		zap.String("wallet", cfg.WalletURL),
		zap.String("pool", cfg.PoolURL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
	log.Info("api-gateway stopped")
}
