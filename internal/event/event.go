package event

import (
	"fmt"
	"slices"
)

// Type defines the kind of captured interaction.
type Type string

const (
	Click            Type = "click"
	Change           Type = "change"
	Scroll           Type = "scroll"
	Focus            Type = "focus"
	Blur             Type = "blur"
	VisibilityChange Type = "visibility_change"
	Resize           Type = "resize"
	FormSubmit       Type = "form_submit"
	Keypress         Type = "keypress"
	PageLoad         Type = "page_load"
	PageUnload       Type = "page_unload"
	Hesitation       Type = "hesitation"
)

// Types lists every event type in a stable order.
var Types = []Type{
	Click, Change, Scroll, Focus, Blur, VisibilityChange, Resize,
	FormSubmit, Keypress, PageLoad, PageUnload, Hesitation,
}

// Valid reports whether t belongs to the closed set of event types.
func (t Type) Valid() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Data is the type specific payload of a record. Values are primitives only.
type Data map[string]any

func primitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// Validate reports the first key holding a non-primitive value.
func (d Data) Validate() error {
	for k, v := range d {
		if !primitive(v) {
			return fmt.Errorf("event_data[%q]: unsupported value type %T", k, v)
		}
	}
	return nil
}

// Primitives returns a copy of d holding only primitive values, and the
// sorted keys that were left out.
func (d Data) Primitives() (Data, []string) {
	out := make(Data, len(d))
	var dropped []string
	for k, v := range d {
		if primitive(v) {
			out[k] = v
			continue
		}
		dropped = append(dropped, k)
	}
	slices.Sort(dropped)
	return out, dropped
}

// Record is one captured signal.
// Timestamp is milliseconds since page load taken from the monotonic clock.
type Record struct {
	Timestamp float64 `json:"timestamp"`
	Type      Type    `json:"event_type"`
	PageURL   string  `json:"page_url"`
	Data      Data    `json:"event_data"`
}

// Validate checks the structural invariants shared by all records.
func (r Record) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown event type %q", r.Type)
	}
	if r.Timestamp < 0 {
		return fmt.Errorf("negative timestamp %v", r.Timestamp)
	}
	return r.Data.Validate()
}

// Str returns the string value stored under key, or "".
func (d Data) Str(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}
