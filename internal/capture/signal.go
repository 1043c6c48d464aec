package capture

import (
	"strings"
	"unicode/utf8"

	"github.com/loykin/tracker/internal/event"
)

// MaxClassLength bounds element_class in captured payloads.
const MaxClassLength = 200

// Element identifies the target of a DOM signal. Tag is empty for
// non-element targets such as the document or window.
type Element struct {
	ID    string `json:"id,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Class string `json:"class,omitempty"`
}

// Signal is a raw browser signal as forwarded by the page.
// Only the fields relevant to Kind are read.
type Signal struct {
	Kind    event.Type `json:"kind"`
	Target  *Element   `json:"target,omitempty"`
	X       float64    `json:"x,omitempty"`
	Y       float64    `json:"y,omitempty"`
	Value   string     `json:"value,omitempty"`
	ScrollX float64    `json:"scroll_x,omitempty"`
	ScrollY float64    `json:"scroll_y,omitempty"`
	Hidden  bool       `json:"hidden,omitempty"`
	Width   int        `json:"width,omitempty"`
	Height  int        `json:"height,omitempty"`
}

// Describe returns the element descriptor of el. Missing or non-element
// targets yield an empty descriptor.
func Describe(el *Element) event.Data {
	d := event.Data{}
	if el == nil || el.Tag == "" {
		return d
	}
	d["element_id"] = el.ID
	d["element_tag"] = strings.ToLower(el.Tag)
	d["element_class"] = truncate(el.Class, MaxClassLength)
	return d
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
