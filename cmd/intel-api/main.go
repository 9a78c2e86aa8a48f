package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/analytics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/diagnostics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/enricher"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/handler"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/ingest"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/producer"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/recommend"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/validation"
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

	log.Info().
		Str("store_driver", cfg.Store.Driver).
		Int("http_port", cfg.Server.HTTPPort).
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("redis_addr", cfg.Redis.Addr).
		Msg("Starting Chanceux Intel API...")

	ctx := context.Background()

	eventStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open event store")
	}
	log.Info().Str("driver", eventStore.Driver()).Msg("Event store connected")

	kafkaProducer := producer.NewKafkaProducer(cfg.Kafka)
	if kafkaProducer.Enabled(producer.TopicEvents) {
		log.Info().Msg("Kafka producer initialized")
	}

	limiter := validation.NewRateLimiter(cfg.Redis, cfg.RateLimit)
	if limiter.Enabled() {
		log.Info().Int("events_per_second", cfg.RateLimit.EventsPerSecond).Msg("Ingestion rate limit enabled")
	}

	h := handler.NewHandler(
		ingest.NewService(eventStore, enricher.NewEnricher(), limiter, kafkaProducer),
		analytics.NewAnalyzer(eventStore, analytics.NewInsightGenerator(cfg.Insights, kafkaProducer)),
		recommend.NewEngine(eventStore, cfg.Recommend),
		diagnostics.NewService(eventStore),
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: handler.NewRouter(h, cfg.Server.CORSOrigins),
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := kafkaProducer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Kafka producer")
	}
	if err := limiter.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis client")
	}
	if err := eventStore.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to close event store")
	}
	log.Info().Msg("Server stopped")
}
