package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/consumer"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/mirror"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/storage"
)

func main() {
	_ = godotenv.Load()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/intel.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.ClickHouse.Addr == "" {
		log.Fatal().Msg("kafka.brokers and clickhouse.addr are required for the mirror")
	}

	log.Info().
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Int("batch_size", cfg.Batch.Size).
		Dur("flush_interval", cfg.Batch.FlushInterval).
		Msg("Configuration loaded")

	// Initialize ClickHouse
	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	if err := ch.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to create interaction_events table")
	}
	log.Info().Msg("Connected to ClickHouse")

	m := mirror.NewMirror(ch, cfg.Batch)
	kafkaConsumer := consumer.NewKafkaConsumer(cfg.Kafka, m)

	ctx, cancel := context.WithCancel(context.Background())
	go kafkaConsumer.Start(ctx)

	log.Info().Msg("Interaction mirror started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	if err := kafkaConsumer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Kafka consumer")
	}
	m.Stop()

	log.Info().Msg("Shutdown complete")
}
