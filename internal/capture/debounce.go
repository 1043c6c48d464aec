package capture

import (
	"time"

	"github.com/loykin/tracker/internal/scheduler"
)

// ScrollDebounce is the quiet period after which a scroll position is recorded.
const ScrollDebounce = 500 * time.Millisecond

// Debouncer coalesces bursts of signals and emits only the last one once no
// further signal arrives within the window. Callers use it from loop turns.
type Debouncer struct {
	sched  *scheduler.Scheduler
	window time.Duration
	emit   func(Signal)

	latest  Signal
	pending scheduler.Handle
	gen     uint64
}

func NewDebouncer(sched *scheduler.Scheduler, window time.Duration, emit func(Signal)) *Debouncer {
	return &Debouncer{sched: sched, window: window, emit: emit}
}

// Push records s and restarts the quiet window.
func (d *Debouncer) Push(s Signal) {
	d.latest = s
	if d.pending != nil {
		d.pending.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = d.sched.After(d.window, func() {
		if gen != d.gen {
			return
		}
		d.pending = nil
		d.emit(d.latest)
	}, "debounce")
}

// Pending reports whether a signal is waiting for its quiet window.
func (d *Debouncer) Pending() bool { return d.pending != nil }

// Cancel drops a pending signal.
func (d *Debouncer) Cancel() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
}
