package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/config"
)

// ClickHouse is the columnar mirror of the interaction log
type ClickHouse struct {
	conn driver.Conn
}

// InteractionRow represents a row in the interaction_events table
type InteractionRow struct {
	EventID          string
	StoreID          string
	Section          string
	ItemsTouched     []string
	ItemsCount       uint16
	TimeSpentSeconds uint32
	AssociateID      string
	DeviceType       string
	Browser          string
	OS               string
	Demographics     string
	Timestamp        time.Time
}

const createInteractionsTable = `
	CREATE TABLE IF NOT EXISTS interaction_events (
		event_id String,
		store_id LowCardinality(String),
		section LowCardinality(String),
		items_touched Array(String),
		items_count UInt16,
		time_spent_seconds UInt32,
		associate_id String,
		device_type LowCardinality(String),
		browser LowCardinality(String),
		os LowCardinality(String),
		demographics String,
		timestamp DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (store_id, section, timestamp)
`

func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn}, nil
}

func (c *ClickHouse) EnsureSchema(ctx context.Context) error {
	return c.conn.Exec(ctx, createInteractionsTable)
}

func (c *ClickHouse) InsertInteractions(ctx context.Context, rows []InteractionRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO interaction_events (
			event_id, store_id, section, items_touched, items_count,
			time_spent_seconds, associate_id,
			device_type, browser, os, demographics, timestamp
		)
	`)
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := batch.Append(
			r.EventID, r.StoreID, r.Section, r.ItemsTouched, r.ItemsCount,
			r.TimeSpentSeconds, r.AssociateID,
			r.DeviceType, r.Browser, r.OS, r.Demographics, r.Timestamp,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
