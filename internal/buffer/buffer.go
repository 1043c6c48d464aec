package buffer

import (
	"sync"

	"github.com/loykin/tracker/internal/event"
)

// Buffer is the ordered queue of captured records.
// Producers only append; the flush path drains everything at once.
// Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	records []event.Record
}

func New() *Buffer { return &Buffer{} }

// Append adds rec at the tail.
func (b *Buffer) Append(rec event.Record) {
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
}

// Drain returns the full ordered contents and leaves the buffer empty.
// It returns nil when nothing was buffered.
func (b *Buffer) Drain() []event.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) == 0 {
		return nil
	}
	out := b.records
	b.records = nil
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
