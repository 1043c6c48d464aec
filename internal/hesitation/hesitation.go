// Package hesitation detects prolonged inactivity between qualifying interactions.
package hesitation

import (
	"time"

	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/scheduler"
)

// Threshold is the inactivity window after which a hesitation is reported.
const Threshold = 10 * time.Second

// State of the detector.
type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
	StateFired State = "fired"
)

// Detector is a single-shot rearmable timer. It is not safe for concurrent
// use; callers invoke it from loop turns only.
type Detector struct {
	sched  *scheduler.Scheduler
	onFire func(event.Data)

	last    time.Time
	pending scheduler.Handle
	gen     uint64
	state   State
}

// New creates an idle detector. onFire receives the hesitation payload.
func New(sched *scheduler.Scheduler, onFire func(event.Data)) *Detector {
	return &Detector{sched: sched, onFire: onFire, state: StateIdle}
}

// Reset records a qualifying interaction and rearms the timer.
func (d *Detector) Reset() {
	d.last = d.sched.Now()
	if d.pending != nil {
		d.pending.Stop()
	}
	// A stopped callback may already be queued behind the current turn;
	// the generation check makes it a no-op.
	d.gen++
	gen := d.gen
	d.pending = d.sched.After(Threshold, func() { d.fire(gen) }, "hesitation")
	d.state = StateArmed
}

func (d *Detector) fire(gen uint64) {
	if gen != d.gen || d.state != StateArmed {
		return
	}
	d.pending = nil
	d.state = StateFired
	since := d.sched.Since(d.last)
	if d.onFire != nil {
		d.onFire(event.Data{
			"duration_ms":            Threshold.Milliseconds(),
			"since_last_interaction": float64(since) / float64(time.Millisecond),
		})
	}
}

// Stop cancels a pending timer without emitting anything.
func (d *Detector) Stop() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
	d.state = StateIdle
}

func (d *Detector) State() State { return d.state }

// LastInteraction returns the time of the most recent Reset.
func (d *Detector) LastInteraction() time.Time { return d.last }
