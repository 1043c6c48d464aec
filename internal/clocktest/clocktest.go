// Package clocktest drives a quartz mock clock across several timer events.
package clocktest

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
)

// Advance moves mClock forward by d, stopping at every scheduled event on the
// way so that each timer and ticker fires and completes in order.
func Advance(ctx context.Context, t testing.TB, mClock *quartz.Mock, d time.Duration) {
	t.Helper()
	for d > 0 {
		next, ok := mClock.Peek()
		if !ok || next > d {
			mClock.Advance(d).MustWait(ctx)
			return
		}
		mClock.Advance(next).MustWait(ctx)
		d -= next
	}
}

// Context returns a context bounded by a generous test deadline.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
