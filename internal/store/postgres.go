package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS interaction_events (
	id                 UUID PRIMARY KEY,
	store_id           TEXT NOT NULL,
	section            TEXT NOT NULL,
	items_touched      JSONB NOT NULL DEFAULT '[]'::jsonb,
	time_spent_seconds INTEGER NOT NULL,
	demographics       JSONB,
	associate_id       TEXT,
	source             JSONB,
	timestamp          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS interaction_events_store_ts ON interaction_events (store_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS interaction_events_store_section ON interaction_events (store_id, section);
CREATE INDEX IF NOT EXISTS interaction_events_items ON interaction_events USING GIN (items_touched);
`

const eventColumns = `id::text, store_id, section, items_touched, time_spent_seconds, demographics, associate_id, source, timestamp`

// Postgres stores events in a single table with JSONB item lists
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects through the pgx driver and creates the events table if missing
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := NewPostgres(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Driver() string { return "postgres" }

func nullableJSON(v interface{}, empty bool) (interface{}, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func insertArgs(id string, e *model.InteractionEvent) ([]interface{}, error) {
	items := e.ItemsTouched
	if items == nil {
		items = []string{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	demographics, err := nullableJSON(e.Demographics, len(e.Demographics) == 0)
	if err != nil {
		return nil, err
	}
	source, err := nullableJSON(e.Source, e.Source == nil)
	if err != nil {
		return nil, err
	}
	var associate interface{}
	if e.AssociateID != "" {
		associate = e.AssociateID
	}
	return []interface{}{
		id, e.StoreID, e.Section, string(itemsJSON), e.TimeSpentSeconds,
		demographics, associate, source, e.Timestamp,
	}, nil
}

const insertEventSQL = `
	INSERT INTO interaction_events (
		id, store_id, section, items_touched, time_spent_seconds,
		demographics, associate_id, source, timestamp
	) VALUES ($1, $2, $3, $4::jsonb, $5, $6::jsonb, $7, $8::jsonb, $9)
`

func (p *Postgres) Insert(ctx context.Context, event *model.InteractionEvent) (string, error) {
	id := uuid.NewString()
	args, err := insertArgs(id, event)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, insertEventSQL, args...); err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	event.ID = id
	return id, nil
}

func (p *Postgres) InsertMany(ctx context.Context, events []*model.InteractionEvent) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(events))
	for _, e := range events {
		id := uuid.NewString()
		args, err := insertArgs(id, e)
		if err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	for i, e := range events {
		e.ID = ids[i]
	}
	return ids, nil
}

// whereClause renders the filter as a WHERE clause with positional arguments
func whereClause(f Filter) (string, []interface{}, error) {
	var conds []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.StoreID != "" {
		conds = append(conds, "store_id = "+next(f.StoreID))
	}
	if f.Section != "" {
		conds = append(conds, "section = "+next(f.Section))
	}
	if len(f.ItemsAny) > 0 {
		data, err := json.Marshal(f.ItemsAny)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "items_touched ?| ARRAY(SELECT jsonb_array_elements_text("+next(string(data))+"::jsonb))")
	}
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp >= "+next(f.Since))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "timestamp <= "+next(f.Until))
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (p *Postgres) Find(ctx context.Context, filter Filter, opts FindOptions) ([]model.InteractionEvent, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	query := "SELECT " + eventColumns + " FROM interaction_events" + where
	if opts.Sort == NewestFirst {
		query += " ORDER BY timestamp DESC"
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	var events []model.InteractionEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (model.InteractionEvent, error) {
	var (
		e            model.InteractionEvent
		items        []byte
		demographics []byte
		associate    sql.NullString
		source       []byte
		ts           time.Time
	)
	if err := rows.Scan(&e.ID, &e.StoreID, &e.Section, &items, &e.TimeSpentSeconds,
		&demographics, &associate, &source, &ts); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}

	if err := json.Unmarshal(items, &e.ItemsTouched); err != nil {
		return e, fmt.Errorf("decode items_touched: %w", err)
	}
	if len(demographics) > 0 {
		if err := json.Unmarshal(demographics, &e.Demographics); err != nil {
			return e, fmt.Errorf("decode demographics: %w", err)
		}
	}
	if len(source) > 0 {
		e.Source = &model.CaptureSource{}
		if err := json.Unmarshal(source, e.Source); err != nil {
			return e, fmt.Errorf("decode source: %w", err)
		}
	}
	e.AssociateID = associate.String
	e.Timestamp = ts
	return e, nil
}

func (p *Postgres) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return 0, fmt.Errorf("encode filter: %w", err)
	}

	var n int64
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interaction_events"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

var itemsAggregateSQL = map[ItemsAccumulator]string{
	SumItems: "SUM(jsonb_array_length(items_touched))::float8",
	AvgItems: "AVG(jsonb_array_length(items_touched))::float8",
}

func (p *Postgres) AggregateSections(ctx context.Context, storeID string, acc ItemsAccumulator) ([]SectionAggregate, error) {
	query := `
		SELECT section, COUNT(*) AS visits, AVG(time_spent_seconds)::float8 AS avg_time, ` + itemsAggregateSQL[acc] + ` AS items
		FROM interaction_events
		WHERE store_id = $1
		GROUP BY section
		ORDER BY visits DESC, section ASC
	`

	rows, err := p.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("aggregate sections: %w", err)
	}
	defer rows.Close()

	out := []SectionAggregate{}
	for rows.Next() {
		var agg SectionAggregate
		if err := rows.Scan(&agg.Section, &agg.Visits, &agg.AvgTime, &agg.Items); err != nil {
			return nil, fmt.Errorf("scan section group: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (p *Postgres) CountByStore(ctx context.Context) ([]StoreCount, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT store_id, COUNT(*) AS count
		FROM interaction_events
		GROUP BY store_id
		ORDER BY count DESC, store_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate stores: %w", err)
	}
	defer rows.Close()

	out := []StoreCount{}
	for rows.Next() {
		var sc StoreCount
		if err := rows.Scan(&sc.StoreID, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan store group: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	res, err := p.db.ExecContext(ctx, "DELETE FROM interaction_events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close(ctx context.Context) error {
	return p.db.Close()
}
