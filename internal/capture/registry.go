package capture

import (
	"errors"
	"fmt"

	"github.com/loykin/tracker/internal/event"
)

// ErrUnknownSignal is returned for signal kinds without a registered listener.
var ErrUnknownSignal = errors.New("unknown signal kind")

// Translator turns a raw signal into the payload of its record.
type Translator func(Signal) event.Data

// Listener describes how one interaction category is captured.
type Listener struct {
	Type      event.Type
	Translate Translator
	// Interaction rearms the hesitation detector.
	Interaction bool
	// Flush triggers an immediate flush after the record is appended.
	Flush bool
	// Debounced signals are coalesced before a record is produced.
	Debounced bool
}

// Registry maps categories to listeners.
type Registry struct {
	listeners map[event.Type]Listener
}

// NewRegistry returns a registry holding the default listener table.
func NewRegistry() *Registry {
	r := &Registry{listeners: make(map[event.Type]Listener)}
	for _, l := range defaultListeners() {
		r.listeners[l.Type] = l
	}
	return r
}

// Register adds or replaces a listener.
func (r *Registry) Register(l Listener) error {
	if !l.Type.Valid() {
		return fmt.Errorf("register listener: unknown event type %q", l.Type)
	}
	if l.Translate == nil {
		return fmt.Errorf("register listener %s: nil translator", l.Type)
	}
	r.listeners[l.Type] = l
	return nil
}

// Lookup returns the listener for kind.
func (r *Registry) Lookup(kind event.Type) (Listener, error) {
	l, ok := r.listeners[kind]
	if !ok {
		return Listener{}, fmt.Errorf("%w: %q", ErrUnknownSignal, kind)
	}
	return l, nil
}

func defaultListeners() []Listener {
	return []Listener{
		{Type: event.Click, Translate: translateClick, Interaction: true},
		{Type: event.Change, Translate: translateChange, Interaction: true},
		{Type: event.Scroll, Translate: translateScroll, Debounced: true},
		{Type: event.Focus, Translate: empty, Interaction: true},
		{Type: event.Blur, Translate: empty},
		{Type: event.VisibilityChange, Translate: translateVisibility},
		{Type: event.Resize, Translate: translateResize},
		{Type: event.FormSubmit, Translate: translateTarget, Flush: true},
		{Type: event.Keypress, Translate: translateTarget, Interaction: true},
	}
}

func empty(Signal) event.Data { return event.Data{} }

func translateTarget(s Signal) event.Data { return Describe(s.Target) }

func translateClick(s Signal) event.Data {
	d := Describe(s.Target)
	d["x"] = s.X
	d["y"] = s.Y
	return d
}

func translateChange(s Signal) event.Data {
	d := Describe(s.Target)
	d["value"] = s.Value
	return d
}

func translateScroll(s Signal) event.Data {
	return event.Data{"scrollX": s.ScrollX, "scrollY": s.ScrollY}
}

func translateVisibility(s Signal) event.Data {
	return event.Data{"hidden": s.Hidden}
}

func translateResize(s Signal) event.Data {
	return event.Data{"width": s.Width, "height": s.Height}
}

// PageLoad builds the page_load payload.
func PageLoad(url, referrer string) event.Data {
	return event.Data{"url": url, "referrer": referrer}
}

// PageUnload builds the page_unload payload.
func PageUnload(timeOnPageMs float64) event.Data {
	return event.Data{"time_on_page_ms": timeOnPageMs}
}
