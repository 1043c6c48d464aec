// Package delivery hands drained batches to the backend.
//
// A Channel tries a non-blocking beacon first and falls back to a blocking
// request with the same batch value. A batch both transports reject is
// dropped: delivery is best effort and nothing is retried or persisted.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/metrics"
)

var (
	ErrBeaconUnavailable = errors.New("beacon unavailable")
	ErrDropped           = errors.New("batch dropped")
)

// Sender is the backend a transport writes to. Sinks satisfy it.
type Sender interface {
	Send(ctx context.Context, b event.Batch) error
}

// Transport is one delivery strategy.
type Transport interface {
	Name() string
	Send(ctx context.Context, b event.Batch) error
}

// Outcome reports which transport accepted a batch.
type Outcome string

const (
	OutcomeBeacon  Outcome = "beacon"
	OutcomeSync    Outcome = "sync"
	OutcomeDropped Outcome = "dropped"
	OutcomeEmpty   Outcome = "empty"
)

// Channel sends batches through a primary transport with one fallback.
type Channel struct {
	primary  Transport
	fallback Transport
	logger   *slog.Logger
}

// NewChannel builds a channel. A nil primary is treated as unavailable.
func NewChannel(primary, fallback Transport, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{primary: primary, fallback: fallback, logger: logger}
}

// Send delivers b. It never retries; the returned error wraps ErrDropped when
// every transport failed.
func (c *Channel) Send(ctx context.Context, b event.Batch) (Outcome, error) {
	if len(b.Events) == 0 {
		return OutcomeEmpty, nil
	}

	primaryErr := ErrBeaconUnavailable
	if c.primary != nil {
		primaryErr = safeSend(ctx, c.primary, b)
		if primaryErr == nil {
			metrics.IncDelivered(c.primary.Name())
			return Outcome(c.primary.Name()), nil
		}
	}
	metrics.IncFallback()
	c.logger.Debug("primary transport rejected batch", "events", len(b.Events), "err", primaryErr)

	if c.fallback == nil {
		metrics.IncDropped()
		return OutcomeDropped, fmt.Errorf("%w: %v", ErrDropped, primaryErr)
	}
	fallbackErr := safeSend(ctx, c.fallback, b)
	if fallbackErr == nil {
		metrics.IncDelivered(c.fallback.Name())
		return Outcome(c.fallback.Name()), nil
	}

	metrics.IncDropped()
	c.logger.Warn("batch dropped", "events", len(b.Events), "err", fallbackErr)
	return OutcomeDropped, fmt.Errorf("%w: %w", ErrDropped, errors.Join(primaryErr, fallbackErr))
}

// Close releases the primary and fallback transports that need it.
func (c *Channel) Close(ctx context.Context) error {
	var errs []error
	for _, t := range []Transport{c.primary, c.fallback} {
		if cl, ok := t.(interface{ Close(context.Context) error }); ok {
			if err := cl.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// safeSend turns a transport panic into an error so the fallback still runs.
func safeSend(ctx context.Context, t Transport, b event.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s transport panicked: %v", t.Name(), r)
		}
	}()
	return t.Send(ctx, b)
}
