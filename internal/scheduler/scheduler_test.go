package scheduler

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"

	"github.com/loykin/tracker/internal/clocktest"
	"github.com/loykin/tracker/internal/loop"
)

func TestAfter_FiresOnce(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	s := New(mClock, loop.New(nil))
	defer s.Stop()

	fired := 0
	s.After(time.Second, func() { fired++ })

	clocktest.Advance(ctx, t, mClock, 999*time.Millisecond)
	assert.Equal(t, 0, fired)
	clocktest.Advance(ctx, t, mClock, time.Millisecond)
	assert.Equal(t, 1, fired)
	clocktest.Advance(ctx, t, mClock, 5*time.Second)
	assert.Equal(t, 1, fired)
}

func TestAfter_StopCancels(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	s := New(mClock, loop.New(nil))
	defer s.Stop()

	fired := false
	h := s.After(time.Second, func() { fired = true })
	assert.True(t, h.Stop())
	clocktest.Advance(ctx, t, mClock, 2*time.Second)
	assert.False(t, fired)
}

func TestEvery_Ticks(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	s := New(mClock, loop.New(nil))
	defer s.Stop()

	ticks := 0
	h := s.Every(5*time.Second, func() { ticks++ }, "flush")
	clocktest.Advance(ctx, t, mClock, 16*time.Second)
	assert.Equal(t, 3, ticks)

	assert.True(t, h.Stop())
	assert.False(t, h.Stop())
}

func TestAfter_PanicDoesNotEscape(t *testing.T) {
	ctx := clocktest.Context(t)
	mClock := quartz.NewMock(t)
	s := New(mClock, loop.New(nil))
	defer s.Stop()

	s.After(time.Second, func() { panic("listener fault") })
	after := false
	s.After(2*time.Second, func() { after = true })
	clocktest.Advance(ctx, t, mClock, 2*time.Second)
	assert.True(t, after)
}
