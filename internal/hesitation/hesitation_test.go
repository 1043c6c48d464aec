package hesitation

import (
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

type harness struct {
	mClock *quartz.Mock
	loop   *loop.Loop
	det    *Detector
	fired  []event.Data
}

func newHarness(t *testing.T) *harness {
	h := &harness{mClock: quartz.NewMock(t), loop: loop.New(nil)}
	s := scheduler.New(h.mClock, h.loop)
	t.Cleanup(s.Stop)
	h.det = New(s, func(d event.Data) { h.fired = append(h.fired, d) })
	return h
}

func (h *harness) reset(t *testing.T) {
	require.NoError(t, h.loop.Run("reset", h.det.Reset))
}

func TestDetector_FiresAfterThreshold(t *testing.T) {
	ctx := clocktest.Context(t)
	h := newHarness(t)
	assert.Equal(t, StateIdle, h.det.State())

	h.reset(t)
	assert.Equal(t, StateArmed, h.det.State())

	clocktest.Advance(ctx, t, h.mClock, Threshold-time.Millisecond)
	assert.Empty(t, h.fired)

	clocktest.Advance(ctx, t, h.mClock, time.Millisecond)
	require.Len(t, h.fired, 1)
	assert.Equal(t, int64(10000), h.fired[0]["duration_ms"])
	assert.InDelta(t, 10000.0, h.fired[0]["since_last_interaction"], 0.001)
	assert.Equal(t, StateFired, h.det.State())
}

func TestDetector_DoesNotRearmItself(t *testing.T) {
	ctx := clocktest.Context(t)
	h := newHarness(t)
	h.reset(t)
	clocktest.Advance(ctx, t, h.mClock, 5*Threshold)
	assert.Len(t, h.fired, 1)

	h.reset(t)
	clocktest.Advance(ctx, t, h.mClock, Threshold)
	assert.Len(t, h.fired, 2)
}

func TestDetector_RepeatedResetsDebounce(t *testing.T) {
	ctx := clocktest.Context(t)
	h := newHarness(t)
	for i := 0; i < 20; i++ {
		h.reset(t)
		clocktest.Advance(ctx, t, h.mClock, Threshold-time.Second)
	}
	assert.Empty(t, h.fired)
	assert.Equal(t, StateArmed, h.det.State())
}

func TestDetector_StopSuppresses(t *testing.T) {
	ctx := clocktest.Context(t)
	h := newHarness(t)
	h.reset(t)
	require.NoError(t, h.loop.Run("stop", h.det.Stop))
	clocktest.Advance(ctx, t, h.mClock, 2*Threshold)
	assert.Empty(t, h.fired)
	assert.Equal(t, StateIdle, h.det.State())
}
