package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/sink"
)

// Sink sends batches to ClickHouse using the official ClickHouse Go client.
type Sink struct {
	conn      driver.Conn
	table     string
	metaTable string
}

func New(addr, database, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: "default",
			Password: "",
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &Sink{conn: conn, table: table, metaTable: table + "_session_meta"}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			batch_id String,
			method_session_id Nullable(String),
			timestamp Float64,
			event_type LowCardinality(String),
			element_id String,
			element_tag String,
			element_class String,
			page_url String,
			event_data String,
			received_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (received_at, batch_id, timestamp)`, s.table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			screen_width Int32,
			screen_height Int32,
			language String,
			timezone String,
			is_iframe Bool,
			received_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY received_at`, s.metaTable),
	}
	for _, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse table: %w", err)
		}
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, b event.Batch) error {
	rows := sink.Rows(b, time.Now())
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare ClickHouse batch: %w", err)
	}
	for _, r := range rows {
		var msid *string
		if r.MethodSessionID != "" {
			v := r.MethodSessionID
			msid = &v
		}
		if err := batch.Append(r.BatchID, msid, r.Timestamp, r.EventType, r.ElementID,
			r.ElementTag, r.ElementClass, r.PageURL, r.EventData, r.ReceivedAt); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append %s event: %w", r.EventType, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert batch into ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) SendMeta(ctx context.Context, m event.SessionMeta) error {
	query := fmt.Sprintf(`INSERT INTO %s (screen_width, screen_height, language, timezone, is_iframe, received_at) VALUES (?, ?, ?, ?, ?, ?)`, s.metaTable)
	err := s.conn.Exec(ctx, query,
		int32(m.ScreenWidth), int32(m.ScreenHeight), m.Language, m.Timezone, m.IsIframe, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session meta into ClickHouse: %w", err)
	}
	return nil
}
