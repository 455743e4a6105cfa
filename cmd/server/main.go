package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/events"
	"dispatch/internal/handler"
	"dispatch/internal/logging"
	"dispatch/internal/middleware"
	"dispatch/internal/realtime"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := logging.New("dispatch", cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	publisher, closePublisher, err := app.NewPublisher(cfg.Kafka, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create trip event publisher")
	}
	defer func() {
		if err := closePublisher(); err != nil {
			logger.WithError(err).Warn("failed to close trip event publisher")
		}
	}()

	verifier, err := middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.WithError(err).Fatal("invalid auth configuration")
	}

	// Background workers live until shutdown.
	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	server, async := wireServer(runCtx, db, redisClient, nrApp, verifier, publisher, cfg, logger)

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	async.Close()
	stopWorkers()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// realtime queue, which the caller drains on shutdown.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	verifier *middleware.TokenVerifier,
	publisher events.Publisher,
	cfg *config.Config,
	logger logrus.FieldLogger,
) (*http.Server, *realtime.AsyncChannel) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	maintenance := internalRedis.NewMaintenanceFlag(redisClient, cfg.Platform.MaintenanceDefault)

	// Realtime: publish through Redis so every instance relays into its hub.
	hub := realtime.NewHub()
	pubsub := internalRedis.NewPubSubChannel(redisClient, logger)
	async := realtime.NewAsyncChannel(pubsub, logger, cfg.Realtime.QueueSize, cfg.Realtime.Workers)
	async.Start(ctx)
	go func() {
		if err := pubsub.Relay(ctx, hub); err != nil {
			logger.WithError(err).Error("realtime relay stopped")
		}
	}()

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	userRepo := postgres.NewUserRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	transactor := postgres.NewTransactor(db)

	// Initialize services.
	auditService := service.NewAuditService(auditRepo, logger)
	guard := service.NewGuard(maintenance, auditService, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, cacheStore, async, logger)
	locationService := service.NewLocationService(tripRepo, locationStore, async, logger)
	confirmationService := service.NewConfirmationService(transactor, tripRepo, driverRepo, vehicleRepo, logger)
	tripService := service.NewTripService(service.TripServiceDeps{
		Tx:            transactor,
		Trips:         tripRepo,
		Drivers:       driverRepo,
		Locks:         lockStore,
		Guard:         guard,
		Audit:         auditService,
		Notifications: notificationService,
		Locations:     locationService,
		Confirmations: confirmationService,
		Publisher:     publisher,
		Channel:       async,
		Logger:        logger,
	})

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:         handler.NewTripHandler(tripService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		StreamHandler:       handler.NewStreamHandler(hub, tripService, cfg.Realtime.Heartbeat, logger),
		AdminHandler:        handler.NewAdminHandler(guard),
		Verifier:            verifier,
		RedisClient:         redisClient,
		NewRelicApp:         nrApp,
		Logger:              logger,
		CORSOrigins:         cfg.Server.CORSOrigins,
	})

	// No WriteTimeout: it would cut long-lived /v1/stream responses.
	return &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}, async
}
