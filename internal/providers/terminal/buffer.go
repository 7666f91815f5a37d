package terminal

import "sync"

// DefaultBacklogSize bounds output nobody was subscribed to receive.
const DefaultBacklogSize = 1024 * 1024

// Backlog is a thread-safe circular buffer for unconsumed pty output. When
// full, the oldest bytes are overwritten.
type Backlog struct {
	mu   sync.Mutex
	data []byte
	head int // index of the oldest byte
	size int // bytes currently held
}

// NewBacklog creates a backlog holding at most capacity bytes
func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = DefaultBacklogSize
	}
	return &Backlog{data: make([]byte, capacity)}
}

// Write appends p, dropping the oldest bytes on overflow
func (b *Backlog) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	capacity := len(b.data)
	if n >= capacity {
		copy(b.data, p[n-capacity:])
		b.head = 0
		b.size = capacity
		return n, nil
	}

	tail := (b.head + b.size) % capacity
	first := copy(b.data[tail:], p)
	copy(b.data, p[first:])

	b.size += n
	if b.size > capacity {
		b.head = (b.head + b.size - capacity) % capacity
		b.size = capacity
	}
	return n, nil
}

// Len reports the number of buffered bytes
func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Drain returns all buffered bytes and empties the backlog
func (b *Backlog) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, b.size)
	first := copy(out, b.data[b.head:min(b.head+b.size, len(b.data))])
	copy(out[first:], b.data[:b.size-first])

	b.head = 0
	b.size = 0
	return out
}
