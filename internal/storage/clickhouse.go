package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"github.com/intentlens/intentlens/internal/config"
)

// ClickHouse is the write-only analytics archive. The core never reads from
// it; sessions are served entirely from memory.
type ClickHouse struct {
	conn driver.Conn
}

// EventRow is a row in the events archive table.
type EventRow struct {
	EventID        string
	SessionID      string
	EventType      string
	Timestamp      time.Time
	SequenceNumber uint32
	PageURL        string
	PageTitle      string
	DeviceType     string
	Country        string
	City           string
	Data           string
}

// InsightRow is a row in the insights archive table.
type InsightRow struct {
	InsightID       uuid.UUID
	SessionID       string
	Timestamp       time.Time
	ConfidenceScore float64
	FrictionCount   uint32
	PatternTypes    []string
	Recommendations []string
	Hypotheses      string
}

// NewClickHouse opens and pings a connection.
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

	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn}, nil
}

// InsertEvents batch-inserts event rows.
func (c *ClickHouse) InsertEvents(ctx context.Context, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, session_id, event_type, timestamp, sequence_number,
			page_url, page_title, device_type, country, city, data
		)
	`)
	if err != nil {
		return err
	}

	for _, e := range events {
		err := batch.Append(
			e.EventID, e.SessionID, e.EventType, e.Timestamp, e.SequenceNumber,
			e.PageURL, e.PageTitle, e.DeviceType, e.Country, e.City, e.Data,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// InsertInsights batch-inserts insight summary rows.
func (c *ClickHouse) InsertInsights(ctx context.Context, insights []InsightRow) error {
	if len(insights) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO insights (
			insight_id, session_id, timestamp, confidence_score,
			friction_count, pattern_types, recommendations, hypotheses
		)
	`)
	if err != nil {
		return err
	}

	for _, row := range insights {
		err := batch.Append(
			row.InsightID, row.SessionID, row.Timestamp, row.ConfidenceScore,
			row.FrictionCount, row.PatternTypes, row.Recommendations, row.Hypotheses,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Close closes the connection.
func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
