package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/tracker/internal/event"
)

const (
	TrackPath = "/api/track"
	MetaPath  = "/api/session_meta"

	DefaultTimeout = 5 * time.Second
)

// Sink POSTs JSON bodies to the backend's tracking endpoints.
// Response bodies are not consumed.
type Sink struct {
	client  *http.Client
	baseURL string
}

// New creates a sink for the backend at baseURL, e.g. http://localhost:5000.
func New(baseURL string, timeout time.Duration) *Sink {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sink{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Sink) Send(ctx context.Context, b event.Batch) error {
	return s.post(ctx, TrackPath, b)
}

func (s *Sink) SendMeta(ctx context.Context, m event.SessionMeta) error {
	return s.post(ctx, MetaPath, m)
}

func (s *Sink) post(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (s *Sink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
