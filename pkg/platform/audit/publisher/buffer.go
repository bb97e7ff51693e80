package publisher

import (
	"sync"

	audit "rwaledger/pkg/platform/audit"
)

const defaultBufferCapacity = 4096

// RingBuffer is a bounded FIFO of journal events. Enqueue never blocks; when
// the buffer is full the oldest pending event is overwritten.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.Event
	start   int
	size    int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &RingBuffer{slots: make([]audit.Event, capacity)}
}

// Enqueue appends event and reports whether an older event was overwritten.
func (b *RingBuffer) Enqueue(event audit.Event) (dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.slots)
	if b.size == capacity {
		b.slots[b.start] = event
		b.start = (b.start + 1) % capacity
		b.dropped++
		return true
	}
	b.slots[(b.start+b.size)%capacity] = event
	b.size++
	return false
}

// DequeueBatch removes and returns up to n of the oldest events, or nil when
// the buffer is empty.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, b.size)
	if n <= 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		idx := (b.start + i) % len(b.slots)
		out[i] = b.slots[idx]
		b.slots[idx] = audit.Event{}
	}
	b.start = (b.start + n) % len(b.slots)
	b.size -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped is the number of events overwritten since construction.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
