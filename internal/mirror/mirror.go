package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/storage"
)

// Sink receives flushed batches
type Sink interface {
	InsertInteractions(ctx context.Context, rows []storage.InteractionRow) error
}

// Mirror buffers consumed interaction events and writes them to the sink in batches
type Mirror struct {
	sink     Sink
	batchCfg config.BatchConfig

	buffer []storage.InteractionRow

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	stop   sync.Once
}

func NewMirror(sink Sink, batchCfg config.BatchConfig) *Mirror {
	m := &Mirror{
		sink:     sink,
		batchCfg: batchCfg,
		buffer:   make([]storage.InteractionRow, 0, batchCfg.Size),
		ticker:   time.NewTicker(batchCfg.FlushInterval),
		done:     make(chan struct{}),
	}
	go m.flushLoop()
	return m
}

// Process buffers one event, flushing when the batch is full
func (m *Mirror) Process(ctx context.Context, event *model.InteractionEvent) error {
	row, err := ToRow(event)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, row)
	shouldFlush := len(m.buffer) >= m.batchCfg.Size
	m.mu.Unlock()

	if shouldFlush {
		m.Flush()
	}
	return nil
}

func (m *Mirror) flushLoop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.Flush()
		}
	}
}

// Flush writes the buffered rows. A failed batch is logged and dropped.
func (m *Mirror) Flush() {
	m.mu.Lock()
	if len(m.buffer) == 0 {
		m.mu.Unlock()
		return
	}
	rows := m.buffer
	m.buffer = make([]storage.InteractionRow, 0, m.batchCfg.Size)
	m.mu.Unlock()

	start := time.Now()
	if err := m.sink.InsertInteractions(context.Background(), rows); err != nil {
		log.Error().Err(err).Int("count", len(rows)).Msg("Failed to insert interaction events")
		return
	}

	metrics.MirrorRowsWritten.Add(float64(len(rows)))
	log.Info().
		Int("count", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Flushed interaction events to ClickHouse")
}

// Stop halts the flush loop and writes what is left
func (m *Mirror) Stop() {
	m.stop.Do(func() {
		m.ticker.Stop()
		close(m.done)
		m.Flush()
	})
}

// ToRow flattens an event into its ClickHouse row
func ToRow(event *model.InteractionEvent) (storage.InteractionRow, error) {
	demographics := ""
	if len(event.Demographics) > 0 {
		data, err := json.Marshal(event.Demographics)
		if err != nil {
			return storage.InteractionRow{}, err
		}
		demographics = string(data)
	}

	items := event.ItemsTouched
	if items == nil {
		items = []string{}
	}

	spent := event.TimeSpentSeconds
	if spent < 0 {
		spent = 0
	}

	row := storage.InteractionRow{
		EventID:          event.ID,
		StoreID:          event.StoreID,
		Section:          event.Section,
		ItemsTouched:     items,
		ItemsCount:       uint16(len(items)),
		TimeSpentSeconds: uint32(spent),
		AssociateID:      event.AssociateID,
		Demographics:     demographics,
		Timestamp:        event.Timestamp.UTC(),
	}
	if event.Source != nil {
		row.DeviceType = event.Source.DeviceType
		row.Browser = event.Source.Browser
		row.OS = event.Source.OS
	}
	return row, nil
}
