package collector

import (
	"maps"

	"github.com/loykin/tracker/internal/hesitation"
)

// Status is a point-in-time view of the collector. LastInteractionMs is the
// time of the last qualifying interaction in milliseconds since Start.
type Status struct {
	Started           bool             `json:"started"`
	Unloaded          bool             `json:"unloaded"`
	Buffered          int              `json:"buffered"`
	Hesitation        hesitation.State `json:"hesitation"`
	LastInteractionMs float64          `json:"last_interaction_ms"`
	MethodSessionID   string           `json:"method_session_id,omitempty"`
	PageURL           string           `json:"page_url"`
	Stats             Stats            `json:"stats"`
}

func (c *Collector) Status() Status {
	var st Status
	_ = c.loop.Run("status", func() {
		st = Status{
			Started:         c.started,
			Unloaded:        c.unloaded,
			Buffered:        c.buf.Len(),
			Hesitation:      c.hes.State(),
			MethodSessionID: c.sess.MethodSessionID(),
			PageURL:         c.sess.PagePath(),
			Stats:           c.stats,
		}
		if last := c.hes.LastInteraction(); !last.IsZero() {
			st.LastInteractionMs = ms(last.Sub(c.sess.StartedAt))
		}
		st.Stats.Delivered = maps.Clone(c.stats.Delivered)
	})
	return st
}
