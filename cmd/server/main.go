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

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/handler"
	"github.com/gamedev-cards/internal/kafka"
	"github.com/gamedev-cards/internal/postgres"
	"github.com/gamedev-cards/internal/profile"
	"github.com/gamedev-cards/internal/redis"
	"github.com/gamedev-cards/internal/service"
	"github.com/gamedev-cards/internal/sui"
	"github.com/gamedev-cards/internal/websocket"
	"github.com/gamedev-cards/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, loadErr := config.Load(*configPath)
	if loadErr != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)
	if loadErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", loadErr)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the fullnode
	logger.Info("connecting to fullnode", "url", cfg.Chain.RPCURL)
	suiClient, err := sui.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.RequestTimeout, logger)
	if err != nil {
		logger.Error("failed to connect to fullnode", "error", err)
		os.Exit(1)
	}
	defer suiClient.Close()

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	snapshots, err := redis.NewSnapshotCache(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer snapshots.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	postgresRepo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresRepo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := postgresRepo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Chain readers and the pending-operation ledger
	resolver := profile.NewResolver(suiClient, snapshots, &cfg.Chain, logger)
	accessor := games.NewAccessor(suiClient, snapshots, &cfg.Chain, logger)
	ledger := games.NewLedger(accessor, resolver, postgresRepo, &cfg.Chain, logger)
	ledger.SetNotifier(wsHub)

	// Initialize sync worker
	syncWorker := worker.NewSyncWorker(resolver, accessor, postgresRepo, snapshots, &cfg.Sync, logger)
	syncWorker.SetBroadcaster(wsHub)

	// Serve the stored directory while the first sync runs
	if err := syncWorker.WarmCache(ctx); err != nil {
		logger.Warn("failed to warm directory cache", "error", err)
	}

	// Start sync worker
	if cfg.Sync.Enabled {
		if err := syncWorker.Start(ctx); err != nil {
			logger.Error("failed to start sync worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize services
	portfolioService := service.NewPortfolioService(resolver, accessor, cfg.Server.PublicURL, logger)
	explorerService := service.NewExplorerService(snapshots, postgresRepo, &cfg.Explorer, logger)
	transactionService := service.NewTransactionService(ledger, logger)
	eventService := service.NewEventService(postgresRepo, syncWorker, ledger, snapshots, logger)

	// Initialize Kafka consumer for relayed chain events
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, eventService, logger)
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

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(portfolioService, explorerService, transactionService, wsHub, logger)
	httpHandler.AddReadinessCheck("redis", snapshots)
	httpHandler.AddReadinessCheck("postgres", postgresRepo)

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

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop sync worker
	if cfg.Sync.Enabled {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
