package producer

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

// Topic names looked up in config.KafkaConfig.Topics
const (
	TopicEvents = "events"
	TopicAlerts = "alerts"
)

// messageWriter is the subset of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes logged events and generated insights.
// A producer without brokers is a no-op.
type KafkaProducer struct {
	writers map[string]messageWriter
}

func NewKafkaProducer(cfg config.KafkaConfig) *KafkaProducer {
	writers := make(map[string]messageWriter)
	if len(cfg.Brokers) == 0 {
		return &KafkaProducer{writers: writers}
	}

	for name, topic := range cfg.Topics {
		writers[name] = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           time.Millisecond * 100,
			Async:                  true,
			AllowAutoTopicCreation: true,
		}
	}

	return &KafkaProducer{writers: writers}
}

// Enabled reports whether the named topic has a writer
func (p *KafkaProducer) Enabled(name string) bool {
	_, ok := p.writers[name]
	return ok
}

// ProduceEvent publishes a stored event keyed by store so a store's events stay ordered
func (p *KafkaProducer) ProduceEvent(ctx context.Context, event *model.InteractionEvent) error {
	w, ok := p.writers[TopicEvents]
	if !ok {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.StoreID),
		Value: data,
	})
}

// ProduceAlert publishes one insight alert
func (p *KafkaProducer) ProduceAlert(ctx context.Context, storeID string, alert interface{}) error {
	w, ok := p.writers[TopicAlerts]
	if !ok {
		return nil
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(storeID),
		Value: data,
	})
}

func (p *KafkaProducer) Close() error {
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
