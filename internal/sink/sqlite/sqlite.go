package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/tracker/internal/sink"
)

// Sink writes batches to a SQLite database.
type Sink struct {
	*sink.SQLSink
}

// New creates a new SQLite sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared across calls
	db.SetMaxOpenConns(1)

	s, err := sink.NewSQLSink(context.Background(), db, sink.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{SQLSink: s}, nil
}
