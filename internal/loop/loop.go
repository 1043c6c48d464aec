// Package loop serializes collector work into turns.
//
// A turn runs to completion before the next one starts, which gives timer
// callbacks and externally triggered operations the same ordering guarantees
// a browser event loop gives page scripts. Panics raised inside a turn are
// recovered so telemetry faults never reach the host.
package loop

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loykin/tracker/internal/logger"
)

// ErrPanicked wraps a panic recovered from a turn.
var ErrPanicked = errors.New("turn panicked")

type Loop struct {
	mu     sync.Mutex
	logger *slog.Logger
}

func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{logger: logger}
}

// Run executes fn as one turn. Turns must not nest: calling Run from inside
// fn deadlocks.
func (l *Loop) Run(name string, fn func()) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", name, ErrPanicked, r)
			l.logger.Error("recovered telemetry fault", logger.TurnKey, name, "panic", r)
		}
	}()
	fn()
	return nil
}
