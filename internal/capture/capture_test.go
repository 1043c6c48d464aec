package capture

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/tracker/internal/clocktest"
	"github.com/loykin/tracker/internal/event"
	"github.com/loykin/tracker/internal/loop"
	"github.com/loykin/tracker/internal/scheduler"
)

func TestDescribe_TruncatesClass(t *testing.T) {
	d := Describe(&Element{ID: "b", Tag: "BUTTON", Class: strings.Repeat("x", 250)})
	assert.Equal(t, "b", d["element_id"])
	assert.Equal(t, "button", d["element_tag"])
	assert.Len(t, d.Str("element_class"), 200)
}

func TestDescribe_TruncateIsRuneSafe(t *testing.T) {
	d := Describe(&Element{Tag: "div", Class: strings.Repeat("ä", 201)})
	assert.Equal(t, 200, len([]rune(d.Str("element_class"))))
}

func TestDescribe_DegradesToEmpty(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Empty(t, Describe(&Element{ID: "doc"}))
}

func TestRegistry_Translators(t *testing.T) {
	r := NewRegistry()
	testCases := []struct {
		name        string
		sig         Signal
		want        event.Data
		interaction bool
		flush       bool
	}{
		{"click", Signal{Kind: event.Click, Target: &Element{ID: "go", Tag: "A"}, X: 10, Y: 20},
			event.Data{"element_id": "go", "element_tag": "a", "element_class": "", "x": 10.0, "y": 20.0}, true, false},
		{"click without target", Signal{Kind: event.Click, X: 1, Y: 2},
			event.Data{"x": 1.0, "y": 2.0}, true, false},
		{"change", Signal{Kind: event.Change, Target: &Element{Tag: "input"}, Value: "42"},
			event.Data{"element_id": "", "element_tag": "input", "element_class": "", "value": "42"}, true, false},
		{"focus", Signal{Kind: event.Focus}, event.Data{}, true, false},
		{"blur", Signal{Kind: event.Blur}, event.Data{}, false, false},
		{"visibility", Signal{Kind: event.VisibilityChange, Hidden: true}, event.Data{"hidden": true}, false, false},
		{"resize", Signal{Kind: event.Resize, Width: 800, Height: 600}, event.Data{"width": 800, "height": 600}, false, false},
		{"submit", Signal{Kind: event.FormSubmit, Target: &Element{ID: "f", Tag: "FORM"}},
			event.Data{"element_id": "f", "element_tag": "form", "element_class": ""}, false, true},
		{"keypress", Signal{Kind: event.Keypress, Target: &Element{Tag: "textarea", Class: "c"}},
			event.Data{"element_id": "", "element_tag": "textarea", "element_class": "c"}, true, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := r.Lookup(tc.sig.Kind)
			require.NoError(t, err)
			assert.Equal(t, tc.want, l.Translate(tc.sig))
			assert.Equal(t, tc.interaction, l.Interaction)
			assert.Equal(t, tc.flush, l.Flush)
		})
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("dblclick")
	assert.True(t, errors.Is(err, ErrUnknownSignal))

	// page lifecycle and hesitation records are produced by the collector itself
	_, err = r.Lookup(event.Hesitation)
	assert.True(t, errors.Is(err, ErrUnknownSignal))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Listener{Type: "nope", Translate: empty}))
	assert.Error(t, r.Register(Listener{Type: event.Blur}))

	require.NoError(t, r.Register(Listener{Type: event.Blur, Translate: func(Signal) event.Data {
		return event.Data{"custom": true}
	}}))
	l, err := r.Lookup(event.Blur)
	require.NoError(t, err)
	assert.Equal(t, event.Data{"custom": true}, l.Translate(Signal{}))
}

func TestDebouncer_EmitsFinalPosition(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	lp := loop.New(nil)
	s := scheduler.New(mClock, lp)
	defer s.Stop()

	var got []Signal
	d := NewDebouncer(s, ScrollDebounce, func(sig Signal) { got = append(got, sig) })

	for i := 1; i <= 5; i++ {
		y := float64(i * 100)
		require.NoError(t, lp.Run("scroll", func() { d.Push(Signal{Kind: event.Scroll, ScrollY: y}) }))
		clocktest.Advance(ctx, t, mClock, 100*time.Millisecond)
	}
	assert.Empty(t, got)
	assert.True(t, d.Pending())

	clocktest.Advance(ctx, t, mClock, ScrollDebounce)
	require.Len(t, got, 1)
	assert.Equal(t, 500.0, got[0].ScrollY)
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	lp := loop.New(nil)
	s := scheduler.New(mClock, lp)
	defer s.Stop()

	emitted := false
	d := NewDebouncer(s, ScrollDebounce, func(Signal) { emitted = true })
	require.NoError(t, lp.Run("scroll", func() { d.Push(Signal{Kind: event.Scroll}) }))
	require.NoError(t, lp.Run("cancel", d.Cancel))
	clocktest.Advance(ctx, t, mClock, time.Second)
	assert.False(t, emitted)
}
