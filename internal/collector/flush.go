package collector

import (
	"context"
	"time"

	"github.com/loykin/tracker/internal/delivery"
	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/metrics"
)

// FlushInterval is the period of the background flush.
const FlushInterval = 5 * time.Second

// Trigger names what caused a flush.
type Trigger string

const (
	TriggerPeriodic   Trigger = "periodic"
	TriggerFormSubmit Trigger = "form_submit"
	TriggerUnload     Trigger = "page_unload"
	TriggerManual     Trigger = "manual"
)

func flushTrigger(t event.Type) Trigger {
	switch t {
	case event.FormSubmit:
		return TriggerFormSubmit
	case event.PageUnload:
		return TriggerUnload
	default:
		return TriggerManual
	}
}

// flush drains the buffer and hands the batch to the delivery channel.
// Must run inside a turn. An empty drain sends nothing.
func (c *Collector) flush(trigger Trigger) delivery.Outcome {
	records := c.buf.Drain()
	if len(records) == 0 {
		return delivery.OutcomeEmpty
	}
	metrics.SetBuffered(0)
	metrics.ObserveFlush(string(trigger), len(records))

	b := event.NewBatch(records, c.sess.MethodSessionID())
	out, err := c.channel.Send(context.Background(), b)

	c.stats.Flushes++
	c.stats.LastTrigger = trigger
	c.stats.LastOutcome = out
	if err != nil {
		c.stats.Dropped++
		c.logger.Warn("flush dropped batch", "trigger", trigger, "events", len(records), "err", err)
		return out
	}
	c.stats.Delivered[string(out)]++
	c.logger.Debug("flushed", "trigger", trigger, "events", len(records), "transport", out)
	return out
}
