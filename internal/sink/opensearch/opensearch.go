package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/sink"
)

// Sink sends batches to OpenSearch via the _bulk API, one document per event.
// Session metadata goes to <index>-session-meta via _doc.
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Sink {
	c := &http.Client{Timeout: 5 * time.Second}
	return &Sink{client: c, baseURL: strings.TrimRight(baseURL, "/"), index: index}
}

type doc struct {
	BatchID         string          `json:"batch_id"`
	MethodSessionID *string         `json:"method_session_id"`
	Timestamp       float64         `json:"timestamp"`
	EventType       string          `json:"event_type"`
	ElementID       string          `json:"element_id"`
	ElementTag      string          `json:"element_tag"`
	ElementClass    string          `json:"element_class"`
	PageURL         string          `json:"page_url"`
	EventData       json.RawMessage `json:"event_data"`
	ReceivedAt      time.Time       `json:"received_at"`
}

func (s *Sink) Send(ctx context.Context, b event.Batch) error {
	rows := sink.Rows(b, time.Now())
	if len(rows) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	action := map[string]map[string]string{"index": {"_index": s.index}}
	for _, r := range rows {
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(doc{
			BatchID:         r.BatchID,
			MethodSessionID: b.MethodSessionID,
			Timestamp:       r.Timestamp,
			EventType:       r.EventType,
			ElementID:       r.ElementID,
			ElementTag:      r.ElementTag,
			ElementClass:    r.ElementClass,
			PageURL:         r.PageURL,
			EventData:       json.RawMessage(r.EventData),
			ReceivedAt:      r.ReceivedAt,
		}); err != nil {
			return err
		}
	}
	return s.post(ctx, s.baseURL+"/_bulk", "application/x-ndjson", body.Bytes())
}

func (s *Sink) SendMeta(ctx context.Context, m event.SessionMeta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.post(ctx, fmt.Sprintf("%s/%s-session-meta/_doc", s.baseURL, s.index), "application/json", b)
}

func (s *Sink) post(ctx context.Context, u, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opensearch sink status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
