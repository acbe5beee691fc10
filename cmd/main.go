package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rryowa/authsession/internal/api"
	"github.com/rryowa/authsession/internal/controller"
	"github.com/rryowa/authsession/internal/migrations"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/storage/postgres"
	"github.com/rryowa/authsession/internal/storage/redis"
	"github.com/rryowa/authsession/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	util.LoadEnv(ctx, ".env")
	logger := util.NewZapLogger()
	defer func() { _ = logger.Sync() }()

	tokenConfig, err := util.NewTokenConfig()
	if err != nil {
		logger.Fatalw("invalid token config", "error", err)
	}
	dbConfig, err := util.NewDBConfig()
	if err != nil {
		logger.Fatalw("invalid database config", "error", err)
	}
	redisConfig, err := util.NewRedisConfig()
	if err != nil {
		logger.Fatalw("invalid redis config", "error", err)
	}
	authConfig := util.NewAuthConfig()
	eventsConfig := util.NewEventsConfig()

	db, dbCleanup, err := util.NewDBConnection(ctx, logger, dbConfig)
	if err != nil {
		logger.Fatalw("database unavailable", "error", err)
	}
	cleanupFuncs := []func(){dbCleanup}

	if err := migrations.RunMigrations(ctx, db, logger); err != nil {
		logger.Fatalw("migrations failed", "error", err)
	}

	redisClient, redisCleanup, err := util.NewRedisClient(ctx, logger, redisConfig)
	if err != nil {
		logger.Fatalw("redis unavailable", "error", err)
	}
	cleanupFuncs = append(cleanupFuncs, redisCleanup)

	apiKeyService := service.NewAPIKeyService(redisClient, logger)
	if adminKey := util.NewAdminConfig().APIKey; adminKey != "" {
		if err := apiKeyService.SyncAPIKey(ctx, adminKey); err != nil {
			logger.Fatalw("failed to sync admin API key", "error", err)
		}
	} else {
		logger.Warn("AUTH_SERVICE_API_KEY is not set; admin endpoints accept only a previously synced key")
	}

	webhookService := service.NewWebhookService(logger, eventsConfig.WebhookURL)
	cleanupFuncs = append(cleanupFuncs, webhookService.Wait)
	events := service.MultiPublisher{webhookService}

	if eventsConfig.AMQPURL != "" {
		amqpPublisher, err := service.NewAMQPPublisher(eventsConfig.AMQPURL, eventsConfig.AMQPExchange, logger)
		if err != nil {
			logger.Fatalw("amqp unavailable", "error", err)
		}
		events = append(events, amqpPublisher)
		cleanupFuncs = append(cleanupFuncs, func() {
			if err := amqpPublisher.Close(); err != nil {
				logger.Errorw("failed to close amqp publisher", "error", err)
			}
		})
	}

	storage := postgres.NewStorage(db)
	denylist := redis.NewDenylistStorage(redisClient)

	tokenService := service.NewTokenService(tokenConfig, denylist)
	refreshStore := service.NewRefreshTokenStore(storage, tokenConfig.RefreshTTL)
	hasher := service.NewBcryptHasher(authConfig.BcryptCost)
	authService := service.NewAuthService(authConfig, storage, hasher, tokenService, refreshStore, events, logger)

	purger := service.NewPurgeWorker(refreshStore, util.NewPurgeConfig().Interval, logger)
	// released first on shutdown, before the database is closed
	cleanupFuncs = append(cleanupFuncs, purger.Start(ctx))

	ctrl := controller.NewController(logger, authService, purger)

	apiServer, err := api.NewAPI(ctrl, authService, apiKeyService, logger, util.NewServerConfig(), cleanupFuncs)
	if err != nil {
		logger.Fatalw("failed to build API", "error", err)
	}
	apiServer.Run(ctx)
}
