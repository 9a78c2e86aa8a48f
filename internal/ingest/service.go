package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/enricher"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

// DefaultSessionLimit is the page size of RecentSessions when none is given
const DefaultSessionLimit = 50

var ErrRateLimited = errors.New("ingestion rate limit exceeded")

type Limiter interface {
	Allow(ctx context.Context, storeID string) bool
}

type EventPublisher interface {
	ProduceEvent(ctx context.Context, event *model.InteractionEvent) error
}

// Service appends interaction events to the log and reads them back
type Service struct {
	store     store.EventStore
	enricher  *enricher.Enricher
	limiter   Limiter
	publisher EventPublisher
	now       func() time.Time
}

// NewService wires the ingestion path. enricher, limiter and publisher may be nil.
func NewService(s store.EventStore, e *enricher.Enricher, l Limiter, p EventPublisher) *Service {
	return &Service{
		store:     s,
		enricher:  e,
		limiter:   l,
		publisher: p,
		now:       time.Now,
	}
}

// LogEvent timestamps the event if needed, stores it and returns its ID.
// Required fields are checked by the caller.
func (s *Service) LogEvent(ctx context.Context, event *model.InteractionEvent, userAgent string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, event.StoreID) {
		metrics.EventsRejected.WithLabelValues("rate_limit").Inc()
		return "", ErrRateLimited
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if event.ItemsTouched == nil {
		event.ItemsTouched = []string{}
	}
	if s.enricher != nil {
		s.enricher.Enrich(event, userAgent)
	}

	id, err := s.store.Insert(ctx, event)
	if err != nil {
		metrics.EventsRejected.WithLabelValues("store").Inc()
		return "", fmt.Errorf("log event: %w", err)
	}
	metrics.EventsIngested.WithLabelValues(event.Section).Inc()

	log.Info().
		Str("id", id).
		Str("store_id", event.StoreID).
		Str("section", event.Section).
		Strs("items", event.ItemsTouched).
		Int("time_spent_seconds", event.TimeSpentSeconds).
		Msg("Interaction event logged")

	if s.publisher != nil {
		if err := s.publisher.ProduceEvent(ctx, event); err != nil {
			metrics.EventsPublishFailed.Inc()
			log.Error().Err(err).Str("id", id).Msg("Failed to publish event")
		}
	}

	return id, nil
}

// RecentSessions returns up to limit events of a store, newest first
func (s *Service) RecentSessions(ctx context.Context, storeID string, limit int) ([]model.InteractionEvent, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}

	events, err := s.store.Find(ctx, store.Filter{StoreID: storeID}, store.FindOptions{
		Sort:  store.NewestFirst,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	if events == nil {
		events = []model.InteractionEvent{}
	}
	return events, nil
}
