package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuehub/config"
	"venuehub/database"
	"venuehub/models"
	"venuehub/repositories"
	"venuehub/routes"
	"venuehub/services"
	"venuehub/utils"
	"venuehub/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const version = "1.4.0"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.RegisterBindingValidations()

	// Initialize logger
	setupLogger(cfg)

	// Push credentials are checked before anything connects.
	if err := cfg.Push.Validate(); err != nil {
		logrus.Fatal("Invalid push configuration: ", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Repositories
	notificationRepo := repositories.NewNotificationRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	deliveryRepo := repositories.NewDeliveryRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Provider clients
	apnsClient, err := services.NewAPNSClient(cfg.Push)
	if err != nil {
		logrus.Fatal("Failed to initialize APNs client: ", err)
	}
	senders := map[string]services.ProviderSender{
		models.PlatformAPNS: apnsClient,
		models.PlatformFCM:  services.NewFCMClient(cfg.Push),
	}

	// Services
	personalization := services.NewPersonalizationService(userRepo)
	deliveryService := services.NewDeliveryService(
		senders,
		deliveryRepo,
		subscriptionRepo,
		personalization,
		cfg.BaseURL,
		cfg.Push.FanOutConcurrency,
	)
	notificationService := services.NewNotificationService(
		notificationRepo,
		subscriptionRepo,
		deliveryRepo,
		deliveryService,
		cfg.AllowedSenderDomains,
	)

	// Dispatcher worker
	dispatcher := workers.NewDispatcherWorker(
		redisClient,
		notificationRepo,
		notificationService,
		deliveryService,
		cfg.Push.BatchSize,
		cfg.Push.PollInterval,
	)
	if err := dispatcher.Start(); err != nil {
		logrus.Fatal("Failed to start dispatcher worker: ", err)
	}
	defer dispatcher.Stop()

	// Setup routes
	router := routes.SetupRoutes(routes.Dependencies{
		DB:                  db,
		Redis:               redisClient,
		Config:              cfg,
		JWTService:          utils.NewJWTService(cfg.JWTSecret),
		NotificationService: notificationService,
		SubscriptionRepo:    subscriptionRepo,
		UserRepo:            userRepo,
		Dispatcher:          dispatcher,
		Version:             version,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("VenueHub server starting on port ", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
