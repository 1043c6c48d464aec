package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/metrics"
)

// MetaSender submits session metadata. Sinks satisfy it.
type MetaSender interface {
	SendMeta(ctx context.Context, m event.SessionMeta) error
}

// Reporter sends session metadata once per page, independent of the event
// buffer. Submission is fire-and-forget with no retry.
type Reporter struct {
	env     Environment
	sender  MetaSender
	timeout time.Duration
	logger  *slog.Logger
}

func NewReporter(env Environment, sender MetaSender, timeout time.Duration, logger *slog.Logger) *Reporter {
	if env == nil {
		env = SystemEnvironment{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{env: env, sender: sender, timeout: timeout, logger: logger}
}

// Report gathers the metadata and submits it in the background. Faults in
// the environment or the sender are logged and never reach the caller. The
// returned channel is closed once the submission finished, successfully or not.
func (r *Reporter) Report() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				metrics.IncMetaReport("error")
				r.logger.Error("session meta report panicked", "panic", p)
			}
		}()
		if r.sender == nil {
			return
		}
		meta := Gather(r.env)
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sender.SendMeta(ctx, meta); err != nil {
			metrics.IncMetaReport("error")
			r.logger.Warn("session meta not delivered", "err", err)
			return
		}
		metrics.IncMetaReport("ok")
		r.logger.Debug("session meta delivered", "language", meta.Language, "timezone", meta.Timezone, "is_iframe", meta.IsIframe)
	}()
	return done
}
