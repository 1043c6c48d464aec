// Package collector wires capture, buffering, hesitation detection, flushing
// and delivery into one per-page telemetry collector.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"github.com/loykin/tracker/internal/buffer"
	"github.com/loykin/tracker/internal/capture"
	"github.com/loykin/tracker/internal/delivery"
	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/hesitation"
	"github.com/loykin/tracker/internal/loop"
	"github.com/loykin/tracker/internal/metrics"
	"github.com/loykin/tracker/internal/scheduler"
	"github.com/loykin/tracker/internal/session"
	"github.com/loykin/tracker/internal/sink"
)

var (
	ErrUnloaded       = errors.New("page unloaded")
	ErrNotStarted     = errors.New("collector not started")
	ErrAlreadyStarted = errors.New("collector already started")
)

// Options configures New. Either Sink or at least one transport is required.
type Options struct {
	Clock       quartz.Clock
	Document    session.Document
	Environment session.Environment

	// Sink backs the default beacon and sync transports and receives
	// session metadata.
	Sink sink.Sink
	// Primary and Fallback replace the default transports when set.
	Primary  delivery.Transport
	Fallback delivery.Transport
	// MetaSender overrides Sink for session metadata.
	MetaSender session.MetaSender

	BeaconQueue    int
	RequestTimeout time.Duration

	Registry *capture.Registry
	Logger   *slog.Logger
}

// Collector owns all per-page telemetry state. Its methods are safe for
// concurrent use; every operation runs as a loop turn.
type Collector struct {
	logger   *slog.Logger
	loop     *loop.Loop
	sched    *scheduler.Scheduler
	buf      *buffer.Buffer
	sess     *session.Context
	registry *capture.Registry
	hes      *hesitation.Detector
	scroll   *capture.Debouncer
	channel  *delivery.Channel
	reporter *session.Reporter

	started  bool
	unloaded bool
	lastTS   float64
	ticker   scheduler.Handle
	stats    Stats
}

// Stats counts flush activity since Start.
type Stats struct {
	Flushes     int              `json:"flushes"`
	Delivered   map[string]int   `json:"delivered"`
	Dropped     int              `json:"dropped"`
	LastTrigger Trigger          `json:"last_trigger,omitempty"`
	LastOutcome delivery.Outcome `json:"last_outcome,omitempty"`
}

func New(opts Options) (*Collector, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Document == nil {
		opts.Document = session.NewStaticDocument("", "")
	}
	if opts.Registry == nil {
		opts.Registry = capture.NewRegistry()
	}
	primary, fallback := opts.Primary, opts.Fallback
	if primary == nil && fallback == nil {
		if opts.Sink == nil {
			return nil, errors.New("collector requires a sink or a transport")
		}
		primary = delivery.NewBeacon(opts.Sink, delivery.BeaconOptions{
			QueueSize: opts.BeaconQueue,
			Timeout:   opts.RequestTimeout,
			Logger:    opts.Logger,
		})
		fallback = delivery.NewSync(opts.Sink, opts.RequestTimeout)
	}
	metaSender := opts.MetaSender
	if metaSender == nil && opts.Sink != nil {
		metaSender = opts.Sink
	}

	lp := loop.New(opts.Logger)
	c := &Collector{
		logger:   opts.Logger,
		loop:     lp,
		sched:    scheduler.New(opts.Clock, lp),
		buf:      buffer.New(),
		registry: opts.Registry,
		channel:  delivery.NewChannel(primary, fallback, opts.Logger),
		stats:    Stats{Delivered: make(map[string]int)},
	}
	c.sess = session.NewContext(opts.Document, c.sched.Now())
	c.hes = hesitation.New(c.sched, func(d event.Data) { c.record(event.Hesitation, d) })
	c.scroll = capture.NewDebouncer(c.sched, capture.ScrollDebounce, c.emitScroll)
	c.reporter = session.NewReporter(opts.Environment, metaSender, opts.RequestTimeout, opts.Logger)
	return c, nil
}

// Start records page_load, starts the periodic flush, reports session
// metadata and arms the hesitation detector. The returned channel is closed
// once the metadata submission finished.
func (c *Collector) Start() (<-chan struct{}, error) {
	var (
		meta <-chan struct{}
		err  error
	)
	turnErr := c.loop.Run("start", func() {
		switch {
		case c.unloaded:
			err = ErrUnloaded
			return
		case c.started:
			err = ErrAlreadyStarted
			return
		}
		c.started = true
		c.sess.StartedAt = c.sched.Now()
		doc := c.sess.Document
		c.record(event.PageLoad, capture.PageLoad(doc.URL(), doc.Referrer()))
		c.ticker = c.sched.Every(FlushInterval, func() { c.flush(TriggerPeriodic) }, "flush")
		c.hes.Reset()
		meta = c.reporter.Report()
		c.logger.Info("collector started", "page", c.sess.PagePath())
	})
	if turnErr != nil {
		return nil, turnErr
	}
	return meta, err
}

// Observe captures one raw signal.
func (c *Collector) Observe(sig capture.Signal) error {
	l, err := c.registry.Lookup(sig.Kind)
	if err != nil {
		return err
	}
	var obsErr error
	turnErr := c.loop.Run("observe:"+string(sig.Kind), func() {
		switch {
		case c.unloaded:
			obsErr = ErrUnloaded
			return
		case !c.started:
			obsErr = ErrNotStarted
			return
		}
		if l.Debounced {
			c.scroll.Push(sig)
			return
		}
		c.record(l.Type, l.Translate(sig))
		if l.Interaction {
			c.hes.Reset()
		}
		if l.Flush {
			c.flush(flushTrigger(l.Type))
		}
	})
	if turnErr != nil {
		return turnErr
	}
	return obsErr
}

// Flush drains the buffer and delivers it immediately.
func (c *Collector) Flush() delivery.Outcome {
	out := delivery.OutcomeEmpty
	_ = c.loop.Run("flush:manual", func() {
		out = c.flush(TriggerManual)
	})
	return out
}

// Unload records page_unload, flushes, stops all timers and closes delivery.
// Queued beacons keep being delivered until ctx is done.
func (c *Collector) Unload(ctx context.Context) error {
	var err error
	turnErr := c.loop.Run("unload", func() {
		if c.unloaded {
			err = ErrUnloaded
			return
		}
		c.unloaded = true
		c.scroll.Cancel()
		c.hes.Stop()
		if c.ticker != nil {
			c.ticker.Stop()
		}
		if c.started {
			elapsed := c.sched.Since(c.sess.StartedAt)
			c.record(event.PageUnload, capture.PageUnload(ms(elapsed)))
			c.flush(TriggerUnload)
		}
		c.logger.Info("collector unloaded", "page", c.sess.PagePath())
	})
	if turnErr != nil {
		err = turnErr
	}
	if errors.Is(err, ErrUnloaded) {
		return err
	}
	c.sched.Stop()
	if cerr := c.channel.Close(ctx); cerr != nil {
		return errors.Join(err, fmt.Errorf("close delivery: %w", cerr))
	}
	return err
}

// record appends a record to the buffer. Must run inside a turn.
func (c *Collector) record(t event.Type, data event.Data) {
	if data == nil {
		data = event.Data{}
	}
	if err := data.Validate(); err != nil {
		var dropped []string
		data, dropped = data.Primitives()
		c.logger.Warn("dropped non-primitive event data", "type", t, "keys", dropped)
	}
	ts := ms(c.sched.Since(c.sess.StartedAt))
	if ts < c.lastTS {
		ts = c.lastTS
	}
	c.lastTS = ts
	c.buf.Append(event.Record{
		Timestamp: ts,
		Type:      t,
		PageURL:   c.sess.PagePath(),
		Data:      data,
	})
	metrics.IncCaptured(string(t))
	metrics.SetBuffered(c.buf.Len())
}

func (c *Collector) emitScroll(sig capture.Signal) {
	l, err := c.registry.Lookup(event.Scroll)
	if err != nil {
		return
	}
	c.record(event.Scroll, l.Translate(sig))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
