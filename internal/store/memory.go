package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

// Memory keeps events in insertion order. Used for local runs and tests.
type Memory struct {
	mu     sync.RWMutex
	events []model.InteractionEvent
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Driver() string { return "memory" }

func (m *Memory) Insert(ctx context.Context, event *model.InteractionEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	event.ID = uuid.NewString()
	stored := *event
	stored.ItemsTouched = append([]string{}, event.ItemsTouched...)

	m.mu.Lock()
	m.events = append(m.events, stored)
	m.mu.Unlock()

	return event.ID, nil
}

func (m *Memory) InsertMany(ctx context.Context, events []*model.InteractionEvent) ([]string, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		id, err := m.Insert(ctx, e)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Find(ctx context.Context, filter Filter, opts FindOptions) ([]model.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []model.InteractionEvent
	for i := range m.events {
		if filter.Matches(&m.events[i]) {
			out = append(out, m.events[i])
		}
	}
	m.mu.RUnlock()

	if opts.Sort == NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for i := range m.events {
		if filter.Matches(&m.events[i]) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) AggregateSections(ctx context.Context, storeID string, acc ItemsAccumulator) ([]SectionAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type group struct {
		visits    int64
		timeTotal int64
		items     int64
	}
	groups := make(map[string]*group)

	m.mu.RLock()
	for _, e := range m.events {
		if e.StoreID != storeID {
			continue
		}
		g, ok := groups[e.Section]
		if !ok {
			g = &group{}
			groups[e.Section] = g
		}
		g.visits++
		g.timeTotal += int64(e.TimeSpentSeconds)
		g.items += int64(len(e.ItemsTouched))
	}
	m.mu.RUnlock()

	out := make([]SectionAggregate, 0, len(groups))
	for section, g := range groups {
		agg := SectionAggregate{
			Section: section,
			Visits:  g.visits,
			AvgTime: float64(g.timeTotal) / float64(g.visits),
			Items:   float64(g.items),
		}
		if acc == AvgItems {
			agg.Items = float64(g.items) / float64(g.visits)
		}
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Section < out[j].Section
	})
	return out, nil
}

func (m *Memory) CountByStore(ctx context.Context) ([]StoreCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	m.mu.RLock()
	for _, e := range m.events {
		counts[e.StoreID]++
	}
	m.mu.RUnlock()

	out := make([]StoreCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, StoreCount{StoreID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.events {
		if m.events[i].ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}
