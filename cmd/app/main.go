// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usdt-storefront/internal/config"
	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/infra/chain"
	pg "usdt-storefront/internal/infra/db/postgres"
	"usdt-storefront/internal/infra/logging"
	"usdt-storefront/internal/infra/metrics"
	"usdt-storefront/internal/infra/notify"
	red "usdt-storefront/internal/infra/redis"
	"usdt-storefront/internal/infra/sched"
	"usdt-storefront/internal/infra/web"
	"usdt-storefront/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional: status polling runs unthrottled without it) ----
	var rateLimiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, status polling will not be rate limited")
		} else {
			defer redisClient.Close()
			rateLimiter = red.NewRateLimiter(redisClient)
		}
	}

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	promoRepo := pg.NewPromoCodeRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	entRepo := pg.NewEntitlementRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	observer := chain.NewTronScanObserver(cfg.Chain, logger)

	var sink adapter.NotificationSink
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramSink(cfg.Telegram, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram sink disabled")
		} else {
			sink = tg
		}
	}

	// ---- Use cases ----
	promoUC := usecase.NewPromoCodeUseCase(promoRepo, orderRepo, logger)
	settleUC := usecase.NewSettlementUseCase(
		orderRepo, productRepo, promoRepo, entRepo, userRepo,
		observer, sink, txManager,
		cfg.Chain.Wallet, cfg.Chain.Lookback, logger,
	)
	checkoutUC := usecase.NewCheckoutUseCase(orderRepo, productRepo, promoUC, settleUC, cfg.Payment.Window, logger)
	sweeperUC := usecase.NewSweeperUseCase(entRepo, logger)
	statsUC := usecase.NewStatsUseCase(orderRepo, logger)

	// ---- Background workers ----
	monitor := sched.NewPaymentMonitor(
		orderRepo, observer, settleUC,
		cfg.Chain.Wallet, cfg.Chain.Lookback,
		cfg.Payment.CheckInterval, cfg.Payment.RetryDelay,
		logger,
	)
	go func() { _ = monitor.Run(ctx) }()

	expiry := sched.NewExpiryWorker(cfg.Sweeper.Interval, sweeperUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// ---- HTTP server ----
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, !cfg.Runtime.Dev, cfg.Auth.SessionTTL)
	srv := web.NewServer(
		checkoutUC, settleUC, promoUC, sweeperUC, statsUC,
		orderRepo, productRepo, entRepo, userRepo,
		authMgr, rateLimiter,
		cfg.Chain.Wallet, cfg.Admin.APIKey,
		cfg.RateLimit.StatusPollLimit, cfg.RateLimit.StatusPollWindow,
		logger,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
