package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

// ErrNotFound is returned when a delete targets an unknown event
var ErrNotFound = errors.New("event not found")

// EventStore is the append-only interaction log the analytics engine reads from
type EventStore interface {
	// Insert appends one event, assigns its ID and returns it
	Insert(ctx context.Context, event *model.InteractionEvent) (string, error)
	InsertMany(ctx context.Context, events []*model.InteractionEvent) ([]string, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]model.InteractionEvent, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// AggregateSections groups a store's events by section, ordered by visits desc then section asc
	AggregateSections(ctx context.Context, storeID string, acc ItemsAccumulator) ([]SectionAggregate, error)
	// CountByStore counts events per store, ordered by count desc then store asc
	CountByStore(ctx context.Context) ([]StoreCount, error)
	// Delete exists only for the connectivity probe's self-test record
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Driver() string
}

// Filter selects events. Zero-valued fields do not constrain.
type Filter struct {
	StoreID string
	Section string
	// ItemsAny matches events sharing at least one touched item
	ItemsAny []string
	// Since and Until bound the timestamp, both inclusive
	Since time.Time
	Until time.Time
}

// Matches reports whether e satisfies the filter
func (f Filter) Matches(e *model.InteractionEvent) bool {
	if f.StoreID != "" && e.StoreID != f.StoreID {
		return false
	}
	if f.Section != "" && e.Section != f.Section {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if len(f.ItemsAny) > 0 {
		for _, item := range f.ItemsAny {
			if e.Touched(item) {
				return true
			}
		}
		return false
	}
	return true
}

type SortOrder int

const (
	// Natural leaves ordering to the backend
	Natural SortOrder = iota
	NewestFirst
)

type FindOptions struct {
	Sort  SortOrder
	Limit int
}

// ItemsAccumulator chooses how items_touched lengths are folded per section
type ItemsAccumulator int

const (
	SumItems ItemsAccumulator = iota
	AvgItems
)

func (a ItemsAccumulator) String() string {
	if a == AvgItems {
		return "avg"
	}
	return "sum"
}

// SectionAggregate is one section group. Items holds the sum or the mean of
// items_touched lengths depending on the accumulator used.
type SectionAggregate struct {
	Section string
	Visits  int64
	AvgTime float64
	Items   float64
}

type StoreCount struct {
	StoreID string
	Count   int64
}

// Open connects the backend selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config) (EventStore, error) {
	switch cfg.Store.Driver {
	case "mongo":
		return NewMongo(ctx, cfg.Mongo)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
