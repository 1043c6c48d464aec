// Package scheduler provides the timer primitives the collector depends on.
// Every callback is executed as a loop turn, so timers never interleave with
// signal capture or with each other.
package scheduler

import (
	"context"
	"time"

	"github.com/coder/quartz"

	"github.com/loykin/tracker/internal/loop"
)

// Handle cancels a pending callback. Stop reports whether the call
// prevented a future run.
type Handle interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay or on a fixed period.
type Scheduler struct {
	clock  quartz.Clock
	loop   *loop.Loop
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler on clock. A nil clock means the real clock.
func New(clock quartz.Clock, l *loop.Loop) *Scheduler {
	if clock == nil {
		clock = quartz.NewReal()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{clock: clock, loop: l, ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

func (s *Scheduler) Since(t time.Time) time.Duration { return s.clock.Since(t) }

// After runs fn once after d unless the returned handle is stopped first.
func (s *Scheduler) After(d time.Duration, fn func(), tags ...string) Handle {
	name := turnName("after", tags)
	t := s.clock.AfterFunc(d, func() {
		if s.ctx.Err() != nil {
			return
		}
		_ = s.loop.Run(name, fn)
	}, tags...)
	return timerHandle{t: t}
}

// Every runs fn every d until the handle or the scheduler is stopped.
func (s *Scheduler) Every(d time.Duration, fn func(), tags ...string) Handle {
	ctx, cancel := context.WithCancel(s.ctx)
	name := turnName("every", tags)
	s.clock.TickerFunc(ctx, d, func() error {
		if ctx.Err() != nil {
			return nil
		}
		_ = s.loop.Run(name, fn)
		return nil
	}, tags...)
	return &tickerHandle{ctx: ctx, cancel: cancel}
}

// Stop cancels all periodic callbacks and suppresses pending one-shot ones.
func (s *Scheduler) Stop() { s.cancel() }

type timerHandle struct{ t *quartz.Timer }

func (h timerHandle) Stop() bool { return h.t.Stop() }

type tickerHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (h *tickerHandle) Stop() bool {
	active := h.ctx.Err() == nil
	h.cancel()
	return active
}

func turnName(kind string, tags []string) string {
	if len(tags) == 0 {
		return kind
	}
	return kind + ":" + tags[len(tags)-1]
}
