package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/kafka"
	"github.com/gamedev-cards/internal/relay"
	"github.com/gamedev-cards/internal/sui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	from := flag.String("from", "", "Resume after this event cursor (<txDigest>:<eventSeq>)")
	flag.Parse()

	cfg, loadErr := config.Load(*configPath)
	if loadErr != nil {
		cfg = config.DefaultConfig()
	}
	if *from != "" {
		cfg.Relay.StartCursor = *from
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)
	if loadErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", loadErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := sui.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.RequestTimeout, logger)
	if err != nil {
		logger.Error("failed to connect to fullnode", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	producer, err := kafka.NewProducer(&cfg.Kafka, logger)
	if err != nil {
		logger.Error("failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	r, err := relay.New(client, producer, &cfg.Chain, &cfg.Relay, logger)
	if err != nil {
		logger.Error("invalid relay configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("relaying chain events",
		"package", cfg.Chain.PackageID,
		"module", cfg.Chain.Module,
		"topic", cfg.Kafka.Topic,
		"from", cfg.Relay.StartCursor,
	)
	if err := r.Run(ctx); err != nil {
		logger.Error("relay stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped", "cursor", relay.FormatCursor(r.Cursor()))
}
