package delivery

import (
	"context"
	"time"

	"github.com/loykin/tracker/internal/event"
)

// Sync is the blocking fallback transport.
type Sync struct {
	sender  Sender
	timeout time.Duration
}

func NewSync(sender Sender, timeout time.Duration) *Sync {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Sync{sender: sender, timeout: timeout}
}

func (s *Sync) Name() string { return string(OutcomeSync) }

func (s *Sync) Send(ctx context.Context, b event.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.sender.Send(ctx, b)
}
