package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/tracker/internal/event"
)

// Sink is a backend receiving event batches and session metadata.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, b event.Batch) error
	SendMeta(ctx context.Context, m event.SessionMeta) error
	Close() error
}

// Row is the flattened form of a record as stored by table-based sinks.
// The element descriptor is lifted out of event_data into columns.
type Row struct {
	BatchID         string
	MethodSessionID string
	Timestamp       float64
	EventType       string
	ElementID       string
	ElementTag      string
	ElementClass    string
	PageURL         string
	EventData       string
	ReceivedAt      time.Time
}

// Rows flattens a batch. All rows of one batch share a generated batch id.
func Rows(b event.Batch, now time.Time) []Row {
	id := uuid.NewString()
	out := make([]Row, 0, len(b.Events))
	for _, e := range b.Events {
		data, err := json.Marshal(e.Data)
		if err != nil || e.Data == nil {
			data = []byte("{}")
		}
		out = append(out, Row{
			BatchID:         id,
			MethodSessionID: b.SessionID(),
			Timestamp:       e.Timestamp,
			EventType:       string(e.Type),
			ElementID:       e.Data.Str("element_id"),
			ElementTag:      e.Data.Str("element_tag"),
			ElementClass:    e.Data.Str("element_class"),
			PageURL:         e.PageURL,
			EventData:       string(data),
			ReceivedAt:      now.UTC(),
		})
	}
	return out
}
