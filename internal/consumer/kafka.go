package consumer

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/producer"
)

// MessageProcessor handles decoded interaction events
type MessageProcessor interface {
	Process(ctx context.Context, event *model.InteractionEvent) error
	Flush()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the events topic written by the API
type KafkaConsumer struct {
	reader    messageReader
	processor MessageProcessor
	topic     string
	group     string
}

func NewKafkaConsumer(cfg config.KafkaConfig, processor MessageProcessor) *KafkaConsumer {
	topic := cfg.Topics[producer.TopicEvents]
	if topic == "" {
		topic = "chanceux.events"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1e3,  // 1KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{
		reader:    reader,
		processor: processor,
		topic:     topic,
		group:     cfg.ConsumerGroup,
	}
}

// Start consumes until ctx is cancelled
func (c *KafkaConsumer) Start(ctx context.Context) {
	log.Info().
		Str("topic", c.topic).
		Str("group", c.group).
		Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Kafka consumer stopped")
				return
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		var event model.InteractionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error().
				Err(err).
				Str("value", string(msg.Value)).
				Msg("Failed to parse message")
		} else if err := c.processor.Process(ctx, &event); err != nil {
			log.Error().
				Err(err).
				Str("id", event.ID).
				Msg("Failed to process event")
		}

		// Commit poison messages too so the group does not stall
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("Failed to commit message")
		}
	}
}

func (c *KafkaConsumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	c.processor.Flush()
	return c.reader.Close()
}
