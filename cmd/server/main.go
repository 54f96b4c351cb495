package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustedhands/internal/config"
	handlers "trustedhands/internal/handlers/shared"
	"trustedhands/internal/repositories/mongodb"
	"trustedhands/internal/services"
	"trustedhands/pkg/cache"
	"trustedhands/pkg/database"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/ml"
	"trustedhands/pkg/push"
	"trustedhands/pkg/sms"
	"trustedhands/pkg/storage"
	"trustedhands/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  "stdout",
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Database
	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		Username:       cfg.Database.Username,
		Password:       cfg.Database.Password,
		AuthSource:     cfg.Database.AuthSource,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}

	if cfg.Database.MigrateOnStart {
		if err := database.NewMigrator(mongoDB.Database, appLogger).Up(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	// Cache is optional; without it statistics are not cached and no events are published
	var cacheService services.CacheService
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			IdleTimeout:  cfg.Redis.IdleTimeout,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			SSL:          cfg.Redis.SSL,
		})
		if err != nil {
			appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
			redisCache = nil
		} else {
			cacheService = redisCache
		}
	}

	channels := newNotificationChannels(ctx, cfg, appLogger)

	evidenceStorage, closeStorage, err := newEvidenceStorage(ctx, cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize evidence storage")
	}

	// Repositories
	paymentRepo := mongodb.NewPaymentRepository(mongoDB.Database)
	ticketRepo := mongodb.NewSupportTicketRepository(mongoDB.Database)
	bookingRepo := mongodb.NewBookingRepository(mongoDB.Database)
	userRepo := mongodb.NewUserRepository(mongoDB.Database)
	notificationRepo := mongodb.NewNotificationRepository(mongoDB.Database)
	auditRepo := mongodb.NewAuditLogRepository(mongoDB.Database)
	settingsRepo := mongodb.NewPaymentSettingsRepository(mongoDB.Database)
	messageRepo := mongodb.NewTicketMessageRepository(mongoDB.Database)

	// Services
	classifier := ml.NewKeywordClassifier()
	notifier := services.NewNotificationService(notificationRepo, userRepo, cacheService, channels, appLogger)
	ledger := services.NewPaymentLedger(paymentRepo, bookingRepo, auditRepo, settingsRepo, notifier, cfg.Escrow, appLogger)
	coordinator := services.NewEscrowCoordinator(ledger, ticketRepo, bookingRepo, userRepo,
		classifier, ml.NewHeuristicReviewer(), notifier, cfg.Escrow, appLogger)
	supportService := services.NewSupportService(ticketRepo, messageRepo, userRepo, coordinator, classifier, cacheService, notifier, cfg.Escrow, appLogger)

	checks := map[string]routes.HealthCheck{
		"mongodb": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return mongoDB.Ping(ctx)
		},
	}
	if redisCache != nil {
		checks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisCache.Ping(ctx)
		}
	}

	router := routes.NewRouter(cfg, appLogger, &routes.Handlers{
		Payment: handlers.NewPaymentHandler(ledger),
		Support: handlers.NewSupportHandler(supportService, coordinator, evidenceStorage, cfg.Escrow, appLogger),
	}, checks)

	if local, ok := evidenceStorage.(*storage.LocalStorage); ok {
		router.Static("/uploads/evidence", local.BasePath())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting %s on port %d", cfg.App.Name, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// Let in-flight notifications finish before their stores go away
	notifier.Wait()

	if closeStorage != nil {
		if err := closeStorage(); err != nil {
			appLogger.WithError(err).Warn("Failed to close storage client")
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			appLogger.WithError(err).Warn("Failed to close Redis")
		}
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Failed to close MongoDB")
	}

	appLogger.Info("Server exited")
}

func newNotificationChannels(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) services.NotificationChannels {
	channels := services.NotificationChannels{
		SMSEnabled: cfg.Escrow.ComplaintSMS,
		Timeout:    cfg.Escrow.NotifyTimeout,
	}

	switch cfg.Push.Provider {
	case "fcm", "both":
		fcm, err := push.NewFCMProvider(ctx, cfg.Push.FCM.ProjectID, cfg.Push.FCM.Credentials)
		if err != nil {
			appLogger.WithError(err).Warn("FCM disabled")
		} else {
			channels.FCM = fcm
		}
	}
	switch cfg.Push.Provider {
	case "apns", "both":
		apns, err := push.NewAPNSProvider(cfg.Push.APNS.KeyFile, cfg.Push.APNS.KeyID, cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID, cfg.Push.APNS.Production)
		if err != nil {
			appLogger.WithError(err).Warn("APNs disabled")
		} else {
			channels.APNS = apns
		}
	}

	switch cfg.SMS.Provider {
	case "twilio":
		channels.SMS = sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	case "aws", "sns":
		sns, err := sms.NewAWSSNSProvider(ctx, cfg.SMS.AWS.Region, cfg.SMS.DefaultFrom)
		if err != nil {
			appLogger.WithError(err).Warn("SNS disabled")
		} else {
			channels.SMS = sns
		}
	}

	return channels
}

func newEvidenceStorage(ctx context.Context, cfg *config.StorageConfig) (storage.StorageProvider, func() error, error) {
	switch cfg.Provider {
	case "s3", "aws":
		s3, err := storage.NewAWSS3Storage(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.CDNDomain)
		return s3, nil, err
	case "gcs", "gcp":
		gcs, err := storage.NewGCPStorage(ctx, cfg.GCP.Bucket, cfg.GCP.CredentialsFile, cfg.GCP.CDNDomain)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	default:
		local, err := storage.NewLocalStorage(cfg.Local.BasePath, cfg.Local.BaseURL)
		return local, nil, err
	}
}
