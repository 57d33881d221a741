package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightcast-service/internal/infrastructure/config"
	"flightcast-service/internal/infrastructure/oauth"
	"flightcast-service/internal/infrastructure/persistence"
	"flightcast-service/internal/infrastructure/router"
	gmailChannel "flightcast-service/internal/interface/gmail"
	"flightcast-service/internal/interface/repository"
	"flightcast-service/internal/usecase"
	"flightcast-service/pkg/logger"
	"flightcast-service/pkg/metrics"
	"flightcast-service/pkg/ratelimit"
	"flightcast-service/templates"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Flightcast Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Reference data lives in PostgreSQL
	gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	// Set up repositories
	flightRepo := repository.NewMongoFlightRepository(db)
	subRepo := repository.NewMongoSubscriptionRepository(db)
	airlineRepo := repository.NewGormAirlineRepository(gormDB)
	airportRepo := repository.NewGormAirportRepository(gormDB)

	// Metrics
	appMetrics := metrics.NewMetrics("flightcast")

	// Core components
	limiter := ratelimit.New(cfg.MaxPerHour, cfg.MaxPerDay)
	statusMachine := usecase.NewStatusMachine(flightRepo, log, appMetrics)
	lifecycle := usecase.NewSubscriptionLifecycle(subRepo, log)
	renderer := templates.NewStatusRenderer(airlineRepo, airportRepo, cfg.UnsubscribeBaseURL, log)

	// Delivery channels
	channelRouter := router.NewChannelRouter(log)

	gmailOAuth := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, log)
	gmailSender, err := gmailChannel.NewGmailSender(ctx, gmailOAuth.GetTokenSource(ctx), log)
	if err != nil {
		log.Fatal("Failed to create Gmail sender", "error", err)
	}
	channelRouter.Register(gmailSender)

	if cfg.SMSGatewayURL != "" {
		channelRouter.Register(repository.NewSMSGatewayChannel(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSSenderID, log))
	}

	dispatcher := usecase.NewNotificationDispatcher(
		subRepo,
		lifecycle,
		renderer,
		channelRouter,
		limiter,
		usecase.DispatcherConfig{
			FromAddress:   cfg.FromAddress,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
		},
		log,
		appMetrics,
	)
	// Start the maintenance sweeper
	sweeper := usecase.NewMaintenanceSweeper(subRepo, limiter, log)
	go sweeper.Start(ctx, cfg.SweepInterval)

	// Set up HTTP server for metrics and the status update hook
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	mux.HandleFunc("POST /flights/status", handleStatusUpdate(flightRepo, statusMachine, dispatcher, log))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Flightcast Service stopped")
}
