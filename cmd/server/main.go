package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/feed"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/handler"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/ingest"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/kafka"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL document store
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	documentStore, err := store.NewPostgres(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer documentStore.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := documentStore.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize the cache backend
	var backend cache.Backend
	switch cfg.Cache.Backend {
	case "redis":
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisBackend, err := cache.NewRedis(&cfg.Redis, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisBackend.Close()
		backend = redisBackend
		logger.Info("connected to Redis")
	default:
		backend = cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxEntries)
		logger.Info("using in-process cache backend", "ttl", cfg.Cache.TTL, "max_entries", cfg.Cache.MaxEntries)
	}

	profileCache := cache.NewProfiles(documentStore, backend, logger)
	recordCache := cache.NewRecords(documentStore, backend, logger)

	// Initialize services
	feedService := feed.NewService(documentStore, profileCache, recordCache, &cfg.Feed, logger)
	ingestService := ingest.NewService(documentStore, recordCache, logger)

	// Initialize the record rebuild worker
	recordWorker := worker.NewRecordWorker(documentStore, recordCache, &cfg.Rebuild, logger)
	if cfg.Rebuild.Enabled {
		if err := recordWorker.Start(ctx); err != nil {
			logger.Error("failed to start record rebuild worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for asynchronous round ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, ingestService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(feedService, ingestService, documentStore, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop record rebuild worker
	if cfg.Rebuild.Enabled {
		if err := recordWorker.Stop(); err != nil {
			logger.Error("failed to stop record rebuild worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
