// Package main provides the API server entry point for the tracker tokens engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracker-tokens/internal/adapter"
	"github.com/tracker-tokens/internal/api"
	"github.com/tracker-tokens/internal/config"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/retry"
	"github.com/tracker-tokens/internal/service"
	"github.com/tracker-tokens/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx := logging.WithLogger(context.Background(), logger)

	// Startup connections retry with backoff; request-path operations never do.
	var postgres *storage.PostgresDB
	err = retry.WithBackoff(ctx, retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
		var connErr error
		postgres, connErr = storage.NewPostgresDB(&cfg.Database.Postgres)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	var redis *storage.RedisCache
	err = retry.WithBackoff(ctx, retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
		var connErr error
		redis, connErr = storage.NewRedisCache(&cfg.Database.Redis)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Repositories
	userRepo := storage.NewUserRepository(postgres)
	ledgerRepo := storage.NewLedgerRepository(postgres)
	siteRepo := storage.NewSiteRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	// Services
	ledgerService := service.NewLedgerService(ledgerRepo, cacheService)
	engagementService := service.NewEngagementService(siteRepo, cacheService, cfg.Rewards.TrackerBlockedRate)
	notificationService := service.NewNotificationService(notificationRepo)
	userService := service.NewUserService(userRepo, cacheService, cfg.Rewards.WelcomeBonus)

	breachProvider := adapter.NewBreachRangeClient(cfg.Breach.BaseURL, cfg.Breach.Timeout, logger)
	breachService := service.NewBreachService(breachProvider, userRepo, notificationService, logger)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(
		serverConfig,
		ledgerService,
		engagementService,
		notificationService,
		breachService,
		userService,
		logger,
	)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
