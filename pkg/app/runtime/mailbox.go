package runtime

import "sync"

// Mailbox is an unbounded FIFO queue. Push never blocks, so a slow consumer
// cannot stall the producer; Notify fires after pushes.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
	closed bool
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Push enqueues v. It returns false once the mailbox is closed.
func (m *Mailbox[T]) Push(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns everything queued, in push order.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.items
	m.items = nil
	return out
}

// Notify is signalled when items may be waiting.
func (m *Mailbox[T]) Notify() <-chan struct{} {
	return m.notify
}

func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close drops queued items and rejects further pushes.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
}
