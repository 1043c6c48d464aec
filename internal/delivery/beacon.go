package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/tracker/internal/event"
)

const (
	DefaultBeaconQueue    = 64
	DefaultRequestTimeout = 5 * time.Second
)

// Beacon is a fire-and-forget transport. Send only enqueues; a background
// worker delivers queued batches in order. Queued batches outlive Close until
// they are sent or the close deadline expires.
type Beacon struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan event.Batch

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// BeaconOptions configures NewBeacon. Zero values select defaults.
type BeaconOptions struct {
	QueueSize int
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewBeacon(sender Sender, opts BeaconOptions) *Beacon {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultBeaconQueue
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Beacon{
		sender:  sender,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		queue:   make(chan event.Batch, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Beacon) Name() string { return string(OutcomeBeacon) }

// Send enqueues batch without blocking. It returns ErrBeaconUnavailable when
// the beacon is closed or its queue is full.
func (b *Beacon) Send(_ context.Context, batch event.Batch) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBeaconUnavailable
	}
	select {
	case b.queue <- batch:
		return nil
	default:
		return ErrBeaconUnavailable
	}
}

func (b *Beacon) run() {
	defer close(b.done)
	for batch := range b.queue {
		if b.ctx.Err() != nil {
			b.logger.Warn("beacon abandoned on shutdown", "events", len(batch.Events))
			continue
		}
		ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
		err := b.sender.Send(ctx, batch)
		cancel()
		if err != nil {
			b.logger.Warn("beacon delivery failed", "events", len(batch.Events), "err", err)
			continue
		}
		b.logger.Debug("beacon delivered", "events", len(batch.Events))
	}
}

// Close stops accepting batches and waits until queued ones are delivered or
// ctx is done, in which case in-flight and remaining batches are abandoned.
func (b *Beacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-b.done
		return ctx.Err()
	}
}
