package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/tracker/internal/event"
)

// Dialect captures the differences between the SQL backends.
type Dialect struct {
	Name          string
	TimestampType string
	Placeholder   func(n int) string
}

var (
	SQLite = Dialect{
		Name:          "sqlite",
		TimestampType: "TIMESTAMP",
		Placeholder:   func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:          "postgres",
		TimestampType: "TIMESTAMPTZ",
		Placeholder:   func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// SQLSink writes batches into interaction_event and metadata into session_meta.
// The schema is created if missing.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLSink wraps an opened database and ensures the schema exists.
func NewSQLSink(ctx context.Context, db *sql.DB, d Dialect) (*SQLSink, error) {
	s := &SQLSink{db: db, dialect: d}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%s sink schema: %w", d.Name, err)
	}
	return s, nil
}

func (s *SQLSink) DB() *sql.DB { return s.db }

func (s *SQLSink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS interaction_event(
			batch_id TEXT NOT NULL,
			method_session_id TEXT,
			timestamp DOUBLE PRECISION NOT NULL,
			event_type TEXT NOT NULL,
			element_id TEXT NOT NULL DEFAULT '',
			element_tag TEXT NOT NULL DEFAULT '',
			element_class TEXT NOT NULL DEFAULT '',
			page_url TEXT NOT NULL DEFAULT '',
			event_data TEXT NOT NULL DEFAULT '{}',
			received_at %s NOT NULL
		);`, s.dialect.TimestampType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS session_meta(
			screen_width INTEGER,
			screen_height INTEGER,
			language TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			is_iframe BOOLEAN NOT NULL DEFAULT FALSE,
			received_at %s NOT NULL
		);`, s.dialect.TimestampType),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLSink) placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += s.dialect.Placeholder(i)
	}
	return out
}

// Send inserts all rows of the batch in one transaction.
func (s *SQLSink) Send(ctx context.Context, b event.Batch) error {
	rows := Rows(b, time.Now())
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO interaction_event(
		batch_id, method_session_id, timestamp, event_type, element_id,
		element_tag, element_class, page_url, event_data, received_at)
		VALUES(`+s.placeholders(10)+`);`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		var msid any
		if r.MethodSessionID != "" {
			msid = r.MethodSessionID
		}
		if _, err := stmt.ExecContext(ctx, r.BatchID, msid, r.Timestamp, r.EventType,
			r.ElementID, r.ElementTag, r.ElementClass, r.PageURL, r.EventData, r.ReceivedAt); err != nil {
			return fmt.Errorf("insert %s event: %w", r.EventType, err)
		}
	}
	return tx.Commit()
}

func (s *SQLSink) SendMeta(ctx context.Context, m event.SessionMeta) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_meta(
		screen_width, screen_height, language, timezone, is_iframe, received_at)
		VALUES(`+s.placeholders(6)+`);`,
		m.ScreenWidth, m.ScreenHeight, m.Language, m.Timezone, m.IsIframe, time.Now().UTC())
	return err
}

func (s *SQLSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
