package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_NoBrokersIsNoop(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{Topics: map[string]string{TopicEvents: "chanceux.events"}})
	assert.False(t, p.Enabled(TopicEvents))
	assert.NoError(t, p.ProduceEvent(context.Background(), &model.InteractionEvent{StoreID: "S1"}))
	assert.NoError(t, p.ProduceAlert(context.Background(), "S1", map[string]string{"type": "warning"}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaProducer_WritersPerTopic(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  map[string]string{TopicEvents: "chanceux.events"},
	})
	defer p.Close()

	assert.True(t, p.Enabled(TopicEvents))
	assert.False(t, p.Enabled(TopicAlerts))
}

func TestProduceEvent_KeyedByStore(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaProducer{writers: map[string]messageWriter{TopicEvents: w}}

	e := &model.InteractionEvent{
		ID:           "abc",
		StoreID:      "S1",
		Section:      "athletic",
		ItemsTouched: []string{"a"},
		Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.ProduceEvent(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "S1", string(w.msgs[0].Key))

	var decoded model.InteractionEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "abc", decoded.ID)
	assert.Equal(t, []string{"a"}, decoded.ItemsTouched)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProduceAlert_PropagatesWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaProducer{writers: map[string]messageWriter{TopicAlerts: w}}

	err := p.ProduceAlert(context.Background(), "S1", map[string]string{"type": "warning"})
	assert.EqualError(t, err, "broker down")
}
