package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/config"
	"erp-conference-api/internal/locks"
	"erp-conference-api/internal/outbox"
	"erp-conference-api/internal/repository"
	"erp-conference-api/internal/server"
	"erp-conference-api/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	tokenRepo := repository.NewTokenRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	conferenceRepo := repository.NewConferenceRepository(db)
	productRepo := repository.NewProductRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	tokens := client.NewTokenManager(
		cfg.Erp.TokenURL,
		cfg.Erp.ClientID,
		cfg.Erp.ClientSecret,
		tokenRepo,
	)
	erp := client.NewErpClient(cfg.Erp.BaseApiURL, tokens)

	orderLocks := locks.NewOrderLocks()
	pageLimiter := client.NewPageLimiter(cfg.Erp.PageInterval)

	checkoutService := service.NewCheckoutService(
		db, erp, cfg.Erp.Account,
		orderRepo, conferenceRepo, productRepo, outboxRepo,
		orderLocks,
		cfg.Erp.StatusPartialID, cfg.Erp.StatusCompleteID,
		logger,
	)
	pendingService := service.NewPendingBalanceService(
		db, erp, cfg.Erp.Account,
		orderRepo, conferenceRepo,
		orderLocks,
		cfg.Erp.StepPause,
		logger,
	)
	webhookService := service.NewWebhookService(
		db, erp, cfg.Erp.Account,
		orderRepo, conferenceRepo, productRepo, webhookEventRepo,
		logger,
	)
	syncService := service.NewSyncService(
		db, erp, cfg.Erp.Account,
		orderRepo, productRepo,
		pageLimiter,
		logger,
	)

	dispatcher := outbox.NewDispatcher(
		outboxRepo, erp, cfg.Erp.Account,
		cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts,
		logger,
	)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatcherCtx)

	srv := server.NewServer(
		checkoutService, pendingService, webhookService, syncService,
		cfg.APIKey, logger,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	logger.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info().Msg("signal received, starting graceful shutdown")

	stopDispatcher()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Log.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
