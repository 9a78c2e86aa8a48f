package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

// ProbeStoreID marks the self-test record written by Probe
const ProbeStoreID = "__connection_probe__"

const recentLimit = 5

type StoreCount struct {
	StoreID string `json:"store_id"`
	Count   int64  `json:"count"`
}

type RecentEvent struct {
	Section string   `json:"section"`
	Items   []string `json:"items"`
	Time    string   `json:"time"`
}

type Stats struct {
	TotalEvents   int64         `json:"total_events_in_db"`
	EventsByStore []StoreCount  `json:"events_by_store"`
	MostRecent    []RecentEvent `json:"most_recent_5"`
}

type ProbeResult struct {
	Status    string `json:"status"`
	Driver    string `json:"driver"`
	ProbeID   string `json:"probe_id,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Service struct {
	store store.EventStore
	now   func() time.Time
}

func NewService(s store.EventStore) *Service {
	return &Service{store: s, now: time.Now}
}

// Stats summarizes the whole event log across stores
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Count(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	byStore, err := s.store.CountByStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by store: %w", err)
	}

	recent, err := s.store.Find(ctx, store.Filter{}, store.FindOptions{Sort: store.NewestFirst, Limit: recentLimit})
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}

	stats := &Stats{
		TotalEvents:   total,
		EventsByStore: make([]StoreCount, 0, len(byStore)),
		MostRecent:    make([]RecentEvent, 0, len(recent)),
	}
	for _, c := range byStore {
		stats.EventsByStore = append(stats.EventsByStore, StoreCount{StoreID: c.StoreID, Count: c.Count})
	}
	for _, e := range recent {
		items := e.ItemsTouched
		if items == nil {
			items = []string{}
		}
		stats.MostRecent = append(stats.MostRecent, RecentEvent{
			Section: e.Section,
			Items:   items,
			Time:    e.Timestamp.Format(time.RFC3339),
		})
	}
	return stats, nil
}

// Probe round-trips a throwaway event through the store. It never returns an error;
// failures are reported in the result.
func (s *Service) Probe(ctx context.Context) *ProbeResult {
	driver := s.store.Driver()
	start := s.now()

	fail := func(err error) *ProbeResult {
		log.Error().Err(err).Str("driver", driver).Msg("Store connectivity probe failed")
		return &ProbeResult{Status: "failed", Driver: driver, Error: err.Error()}
	}

	if err := s.store.Ping(ctx); err != nil {
		return fail(fmt.Errorf("ping: %w", err))
	}

	event := &model.InteractionEvent{
		StoreID:      ProbeStoreID,
		Section:      "probe",
		ItemsTouched: []string{},
		Timestamp:    start.UTC(),
	}
	id, err := s.store.Insert(ctx, event)
	if err != nil {
		return fail(fmt.Errorf("insert: %w", err))
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fail(fmt.Errorf("delete: %w", err))
	}

	return &ProbeResult{
		Status:    "connected",
		Driver:    driver,
		ProbeID:   id,
		LatencyMs: s.now().Sub(start).Milliseconds(),
	}
}
