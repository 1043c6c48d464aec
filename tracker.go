package tracker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/tracker/internal/capture"
	"github.com/loykin/tracker/internal/collector"
	cfg "github.com/loykin/tracker/internal/config"
	"github.com/loykin/tracker/internal/delivery"
	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/metrics"
	iapi "github.com/loykin/tracker/internal/server"
	"github.com/loykin/tracker/internal/session"
	"github.com/loykin/tracker/internal/sink"
	"github.com/loykin/tracker/internal/sink/factory"
)

// Re-export core types for external consumers.

type Signal = capture.Signal

type Element = capture.Element

type EventType = event.Type

type Record = event.Record

type Batch = event.Batch

type SessionMeta = event.SessionMeta

type Status = collector.Status

type Outcome = delivery.Outcome

type Options = collector.Options

type Config = cfg.FileConfig

type Sink = sink.Sink

type Document = session.StaticDocument

type Environment = session.StaticEnvironment

const MethodSessionIDKey = session.MethodSessionIDKey

var (
	ErrUnloaded      = collector.ErrUnloaded
	ErrUnknownSignal = capture.ErrUnknownSignal
)

// Collector is a thin facade over internal/collector. It closes the sink it
// owns on Unload.
type Collector struct {
	inner *collector.Collector
	owned Sink
}

// New builds a collector from explicit options.
func New(opts Options) (*Collector, error) {
	c, err := collector.New(opts)
	if err != nil {
		return nil, err
	}
	return &Collector{inner: c}, nil
}

// NewFromConfig builds a collector and its sink from a loaded config.
func NewFromConfig(fc *Config, logger *slog.Logger) (*Collector, error) {
	s, err := NewSink(fc.SinkDSN(), fc.Tracker.RequestTimeout)
	if err != nil {
		return nil, err
	}
	c, err := collector.New(Options{
		Document:       fc.Document(),
		Environment:    fc.SessionEnvironment(),
		Sink:           s,
		BeaconQueue:    fc.Tracker.BeaconQueue,
		RequestTimeout: fc.Tracker.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return &Collector{inner: c, owned: s}, nil
}

func NewDocument(url, referrer string) *Document { return session.NewStaticDocument(url, referrer) }

func (c *Collector) Start() (<-chan struct{}, error) { return c.inner.Start() }
func (c *Collector) Observe(sig Signal) error        { return c.inner.Observe(sig) }
func (c *Collector) Flush() Outcome                  { return c.inner.Flush() }
func (c *Collector) Status() Status                  { return c.inner.Status() }

// Unload ends the page and releases the owned sink.
func (c *Collector) Unload(ctx context.Context) error {
	err := c.inner.Unload(ctx)
	if errors.Is(err, ErrUnloaded) {
		return err
	}
	if c.owned != nil {
		if cerr := c.owned.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
		}
	}
	return err
}

// Handler returns the signal bridge for c mounted under basePath.
func (c *Collector) Handler(basePath string) http.Handler {
	return iapi.NewRouter(c, basePath).Handler()
}

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewSink opens the backend named by dsn. See internal/sink/factory for the
// supported schemes.
func NewSink(dsn string, timeout time.Duration) (Sink, error) {
	return factory.NewFromDSN(dsn, timeout)
}

// NewHTTPServer starts an HTTP server exposing the signal bridge for c.
// A nil tlsCfg serves plain HTTP.
func NewHTTPServer(addr, basePath string, c *Collector, tlsCfg *tls.Config) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, c, tlsCfg)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}

// SendSessionMeta gathers the configured environment and submits it once to
// the configured backend.
func SendSessionMeta(ctx context.Context, fc *Config) (SessionMeta, error) {
	meta := session.Gather(fc.SessionEnvironment())
	s, err := NewSink(fc.SinkDSN(), fc.Tracker.RequestTimeout)
	if err != nil {
		return meta, err
	}
	defer func() { _ = s.Close() }()
	ctx, cancel := context.WithTimeout(ctx, fc.Tracker.RequestTimeout)
	defer cancel()
	if err := s.SendMeta(ctx, meta); err != nil {
		return meta, fmt.Errorf("send session meta: %w", err)
	}
	return meta, nil
}
