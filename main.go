package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/config"
	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/handlers"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/mailer"
	"github.com/sabaq-center/sabaq-service/internal/repositories/postgres"
	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
	"github.com/sabaq-center/sabaq-service/internal/validator"
	"github.com/sabaq-center/sabaq-service/pkg"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting sabaq service", "environment", cfg.Environment, "port", cfg.Port)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	repo := repoManager.GetRepository()

	v := validator.New()

	live := livestore.NewStore(redisClient)
	progress := livestore.NewProgressPublisher(redisClient)

	var m mailer.Mailer
	if cfg.SendGrid.APIKey != "" {
		m = mailer.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
		logger.Info("Using SendGrid mailer", "from", cfg.SendGrid.FromEmail)
	} else {
		m = mailer.NewLogMailer(logger)
		logger.Warn("SENDGRID_API_KEY not set, emails will be logged only")
	}

	serviceConfig := services.ServiceManagerConfig{
		Mailer:                m,
		Live:                  live,
		Progress:              progress,
		EmailDispatchInterval: cfg.EmailDispatchInterval,
	}
	if len(cfg.KafkaBrokers) > 0 {
		brokers := cfg.KafkaBrokers
		serviceConfig.EventPublisher = func() (events.EventPublisher, error) {
			return events.NewKafkaEventPublisher(brokers, logger)
		}
		logger.Info("Using Kafka event publisher", "brokers", brokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, events will be logged only")
	}

	serviceManager := services.NewServiceManager(repo, logger, v, serviceConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serviceManager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Background email dispatcher; stops with the signal context.
	go serviceManager.Notification().StartDispatcher(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	ginLogger := utils.NewSlogLogger(logger)
	handlers.SetupMiddleware(router, ginLogger)

	handlerManager := handlers.NewHandlerManager(serviceManager, v, ginLogger, cfg, repo.User(), progress)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service manager shutdown failed", "error", err)
	}

	logger.Info("Service stopped")
	return nil
}
