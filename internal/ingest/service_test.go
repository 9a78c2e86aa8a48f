package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/enricher"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

type denyAll struct{}

func (denyAll) Allow(ctx context.Context, storeID string) bool { return false }

type recordingPublisher struct {
	events []*model.InteractionEvent
	err    error
}

func (p *recordingPublisher) ProduceEvent(ctx context.Context, e *model.InteractionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type brokenStore struct {
	store.EventStore
}

func (brokenStore) Insert(ctx context.Context, e *model.InteractionEvent) (string, error) {
	return "", errors.New("connection refused")
}

func (brokenStore) Find(ctx context.Context, f store.Filter, o store.FindOptions) ([]model.InteractionEvent, error) {
	return nil, errors.New("connection refused")
}

func newTestService(s store.EventStore, l Limiter, p EventPublisher) *Service {
	svc := NewService(s, enricher.NewEnricher(), l, p)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestLogEvent_DefaultsTimestamp(t *testing.T) {
	mem := store.NewMemory()
	pub := &recordingPublisher{}
	svc := newTestService(mem, nil, pub)

	e := &model.InteractionEvent{StoreID: "S1", Section: "athletic", ItemsTouched: []string{"a"}, TimeSpentSeconds: 50}
	id, err := svc.LogEvent(context.Background(), e, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, fixedNow, e.Timestamp)

	got, err := mem.Find(context.Background(), store.Filter{StoreID: "S1"}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, id, pub.events[0].ID)
}

func TestLogEvent_KeepsCallerTimestamp(t *testing.T) {
	svc := newTestService(store.NewMemory(), nil, nil)
	ts := fixedNow.Add(-48 * time.Hour)

	e := &model.InteractionEvent{StoreID: "S1", Section: "formal", Timestamp: ts}
	_, err := svc.LogEvent(context.Background(), e, "")
	require.NoError(t, err)
	assert.Equal(t, ts, e.Timestamp)
	assert.NotNil(t, e.ItemsTouched)
}

func TestLogEvent_Enriches(t *testing.T) {
	svc := newTestService(store.NewMemory(), nil, nil)
	e := &model.InteractionEvent{StoreID: "S1", Section: "formal", ItemsTouched: []string{}}

	_, err := svc.LogEvent(context.Background(), e, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	require.NoError(t, err)
	require.NotNil(t, e.Source)
	assert.Equal(t, "desktop", e.Source.DeviceType)
}

func TestLogEvent_RateLimited(t *testing.T) {
	mem := store.NewMemory()
	svc := newTestService(mem, denyAll{}, nil)

	_, err := svc.LogEvent(context.Background(), &model.InteractionEvent{StoreID: "S1", Section: "a"}, "")
	assert.ErrorIs(t, err, ErrRateLimited)

	n, err := mem.Count(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogEvent_StoreFailurePropagates(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(brokenStore{}, nil, pub)

	_, err := svc.LogEvent(context.Background(), &model.InteractionEvent{StoreID: "S1", Section: "a"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, pub.events)
}

func TestLogEvent_PublishFailureDoesNotFail(t *testing.T) {
	svc := newTestService(store.NewMemory(), nil, &recordingPublisher{err: errors.New("broker down")})

	id, err := svc.LogEvent(context.Background(), &model.InteractionEvent{StoreID: "S1", Section: "a"}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestRecentSessions(t *testing.T) {
	mem := store.NewMemory()
	svc := newTestService(mem, nil, nil)

	for i := 0; i < 60; i++ {
		e := &model.InteractionEvent{StoreID: "S1", Section: "a", Timestamp: fixedNow.Add(time.Duration(i) * time.Minute)}
		_, err := svc.LogEvent(context.Background(), e, "")
		require.NoError(t, err)
	}

	got, err := svc.RecentSessions(context.Background(), "S1", 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultSessionLimit)
	assert.Equal(t, fixedNow.Add(59*time.Minute), got[0].Timestamp)

	got, err = svc.RecentSessions(context.Background(), "S1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.After(got[1].Timestamp))
	assert.True(t, got[1].Timestamp.After(got[2].Timestamp))
}

func TestRecentSessions_UnknownStore(t *testing.T) {
	got, err := newTestService(store.NewMemory(), nil, nil).RecentSessions(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecentSessions_StoreFailure(t *testing.T) {
	_, err := newTestService(brokenStore{}, nil, nil).RecentSessions(context.Background(), "S1", 10)
	assert.Error(t, err)
}
