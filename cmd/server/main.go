// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trackstore-backend/internal/cache"
	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/i18n"
	"github.com/javajoker/trackstore-backend/internal/router"
	"github.com/javajoker/trackstore-backend/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)
	ctx := context.Background()

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}

	if err := database.SeedInitialData(ctx, db, cfg.Admin); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	blobs, err := storage.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize blob store")
	}

	publisher, err := newPublisher(cfg.Kafka)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize event publisher")
	}
	defer publisher.Close()

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisClient.Close()
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r, closeRouter := router.Initialize(router.Dependencies{
		DB:        db,
		Config:    cfg,
		Blobs:     blobs,
		Publisher: publisher,
		Redis:     redisClient,
	})
	defer closeRouter()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newPublisher sends events to Kafka when brokers are configured and to the
// log otherwise.
func newPublisher(cfg config.KafkaConfig) (events.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return events.NewLogPublisher(logrus.StandardLogger()), nil
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.TopicPrefix)
}
