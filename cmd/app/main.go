// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscriber-payments/internal/config"
	"subscriber-payments/internal/domain/ports/adapter"
	"subscriber-payments/internal/infra/api"
	pg "subscriber-payments/internal/infra/db/postgres"
	"subscriber-payments/internal/infra/events"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"
	red "subscriber-payments/internal/infra/redis"
	"subscriber-payments/internal/infra/sched"
	"subscriber-payments/internal/infra/telegram"
	"subscriber-payments/internal/infra/worker"
	"subscriber-payments/internal/usecase"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted emails)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	requestRepo := pg.NewPaymentRequestRepo(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	activationRepo := pg.NewActivationRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)

	// ---- Change feed ----
	feed := red.NewChangeFeed(redisClient, events.NewHub(), logger)
	go func() {
		if err := feed.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("change feed relay stopped")
		}
	}()

	// ---- Admin notifications ----
	var notifier adapter.AdminNotifier = telegram.NewNoopNotifier(logger)
	if cfg.Telegram.Token != "" {
		tn, err := telegram.NewAdminNotifier(&cfg.Telegram, logger, cfg.Runtime.Dev)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		notifier = tn
	}
	jobs := worker.NewPool(2, logger)
	jobs.Start(context.Background())
	defer jobs.Stop()
	notifier = worker.NewAsyncNotifier(notifier, jobs, 10*time.Second)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	planUC := usecase.NewPlanUseCase(planRepo, cfg.Payments.DefaultCurrency, logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, activationRepo, requestRepo, tm, logger)
	requestUC := usecase.NewPaymentRequestUseCase(requestRepo, subUC, feed, notifier, tm, logger, cfg.Runtime.Dev)
	trackingUC := usecase.NewTrackingUseCase(requestUC, logger)

	// ---- Expiry sweep ----
	sweeper := sched.NewExpirySweeper(requestUC, red.NewLocker(redisClient),
		cfg.Scheduler.ExpiryInterval, cfg.Payments.RequestTTL, cfg.Scheduler.ExpiryBatch, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Pool metrics ----
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.ObservePool(pool)
			}
		}
	}()

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.AdminAPIKey, cfg.Auth.AdminTTL)
	srv := api.NewServer(requestUC, trackingUC, planUC, userUC, subUC, auth, api.Options{
		Cache:          redisClient,
		Limiter:        red.NewRateLimiter(redisClient),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Health: map[string]api.HealthCheck{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis":    redisClient.Ping,
		},
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		// WriteTimeout stays zero unless configured: event streams are long-lived.
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
