package buffer

import (
	"sync"
	"testing"

	"github.com/loykin/tracker/internal/event"
)

func rec(i int) event.Record {
	return event.Record{Timestamp: float64(i), Type: event.Click, PageURL: "/p", Data: event.Data{"i": i}}
}

func TestAppendDrain_PreservesOrder(t *testing.T) {
	b := New()
	for i := 0; i < 50; i++ {
		b.Append(rec(i))
	}
	if b.Len() != 50 {
		t.Fatalf("expected 50 buffered, got %d", b.Len())
	}
	got := b.Drain()
	if len(got) != 50 {
		t.Fatalf("expected 50 drained, got %d", len(got))
	}
	for i, r := range got {
		if r.Data["i"] != i {
			t.Fatalf("record %d out of order: %v", i, r.Data["i"])
		}
	}
	if b.Len() != 0 {
		t.Fatalf("buffer not empty after drain: %d", b.Len())
	}
}

func TestDrain_Empty(t *testing.T) {
	b := New()
	if got := b.Drain(); len(got) != 0 {
		t.Fatalf("expected empty drain, got %d", len(got))
	}
}

func TestDrain_Twice(t *testing.T) {
	b := New()
	b.Append(rec(1))
	b.Append(rec(2))
	first := b.Drain()
	second := b.Drain()
	if len(first) != 2 {
		t.Fatalf("first drain: expected 2, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("second drain: expected 0, got %d", len(second))
	}
}

func TestDrain_ConcurrentAppendsNeverLostOrDuplicated(t *testing.T) {
	b := New()
	const producers, per = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				b.Append(rec(p*per + i))
			}
		}(p)
	}

	seen := make(map[int]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	collect := func() {
		for _, r := range b.Drain() {
			seen[r.Data["i"].(int)]++
		}
	}
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			collect()
		}
	}
	collect()

	if len(seen) != producers*per {
		t.Fatalf("expected %d distinct records, got %d", producers*per, len(seen))
	}
	for k, n := range seen {
		if n != 1 {
			t.Fatalf("record %d delivered %d times", k, n)
		}
	}
}
