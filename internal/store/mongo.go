package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

// Mongo stores events as documents in a single collection
type Mongo struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// eventDocument is the stored shape of an InteractionEvent
type eventDocument struct {
	ID               primitive.ObjectID     `bson:"_id,omitempty"`
	StoreID          string                 `bson:"store_id"`
	Section          string                 `bson:"section"`
	ItemsTouched     []string               `bson:"items_touched"`
	TimeSpentSeconds int                    `bson:"time_spent_seconds"`
	Demographics     map[string]interface{} `bson:"demographics,omitempty"`
	AssociateID      string                 `bson:"associate_id,omitempty"`
	Source           *model.CaptureSource   `bson:"source,omitempty"`
	Timestamp        time.Time              `bson:"timestamp"`
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	m := &Mongo{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}

	// Test connection
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return m, nil
}

// NewMongoWithCollection wraps an existing collection handle. The caller owns the client.
func NewMongoWithCollection(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll}
}

func (m *Mongo) Driver() string { return "mongo" }

func (m *Mongo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

func toDocument(e *model.InteractionEvent) eventDocument {
	items := e.ItemsTouched
	if items == nil {
		items = []string{}
	}
	return eventDocument{
		StoreID:          e.StoreID,
		Section:          e.Section,
		ItemsTouched:     items,
		TimeSpentSeconds: e.TimeSpentSeconds,
		Demographics:     e.Demographics,
		AssociateID:      e.AssociateID,
		Source:           e.Source,
		Timestamp:        e.Timestamp,
	}
}

func (d eventDocument) toEvent() model.InteractionEvent {
	return model.InteractionEvent{
		ID:               d.ID.Hex(),
		StoreID:          d.StoreID,
		Section:          d.Section,
		ItemsTouched:     d.ItemsTouched,
		TimeSpentSeconds: d.TimeSpentSeconds,
		Demographics:     d.Demographics,
		AssociateID:      d.AssociateID,
		Source:           d.Source,
		Timestamp:        d.Timestamp,
	}
}

func mongoFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.StoreID != "" {
		filter["store_id"] = f.StoreID
	}
	if f.Section != "" {
		filter["section"] = f.Section
	}
	if len(f.ItemsAny) > 0 {
		// At least one item in common
		filter["items_touched"] = bson.M{"$in": f.ItemsAny}
	}
	ts := bson.M{}
	if !f.Since.IsZero() {
		ts["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		ts["$lte"] = f.Until
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}

func (m *Mongo) Insert(ctx context.Context, event *model.InteractionEvent) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	doc := toDocument(event)
	doc.ID = primitive.NewObjectID()

	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	event.ID = doc.ID.Hex()
	return event.ID, nil
}

func (m *Mongo) InsertMany(ctx context.Context, events []*model.InteractionEvent) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		doc := toDocument(e)
		doc.ID = primitive.NewObjectID()
		docs = append(docs, doc)
		ids = append(ids, doc.ID.Hex())
	}

	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert events: %w", err)
	}

	for i, e := range events {
		e.ID = ids[i]
	}
	return ids, nil
}

func (m *Mongo) Find(ctx context.Context, filter Filter, opts FindOptions) ([]model.InteractionEvent, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	findOpts := options.Find()
	if opts.Sort == NewestFirst {
		findOpts.SetSort(bson.D{{Key: "timestamp", Value: -1}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := m.coll.Find(ctx, mongoFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]model.InteractionEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toEvent())
	}
	return events, nil
}

func (m *Mongo) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	n, err := m.coll.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

type sectionGroup struct {
	Section string  `bson:"_id"`
	Visits  int64   `bson:"visits"`
	AvgTime float64 `bson:"avg_time"`
	Items   float64 `bson:"items"`
}

func (m *Mongo) AggregateSections(ctx context.Context, storeID string, acc ItemsAccumulator) ([]SectionAggregate, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	itemsSize := bson.M{"$size": bson.M{"$ifNull": bson.A{"$items_touched", bson.A{}}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"store_id": storeID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$section"},
			{Key: "visits", Value: bson.M{"$sum": 1}},
			{Key: "avg_time", Value: bson.M{"$avg": "$time_spent_seconds"}},
			{Key: "items", Value: bson.M{"$" + acc.String(): itemsSize}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "visits", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate sections: %w", err)
	}

	var groups []sectionGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode section groups: %w", err)
	}

	out := make([]SectionAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, SectionAggregate(g))
	}
	return out, nil
}

type storeGroup struct {
	StoreID string `bson:"_id"`
	Count   int64  `bson:"count"`
}

func (m *Mongo) CountByStore(ctx context.Context) ([]StoreCount, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$store_id"},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate stores: %w", err)
	}

	var groups []storeGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode store groups: %w", err)
	}

	out := make([]StoreCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, StoreCount(g))
	}
	return out, nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if m.client == nil {
		return m.coll.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	}
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
