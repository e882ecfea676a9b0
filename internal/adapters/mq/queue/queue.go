// Package queue buffers accepted session submissions until a worker ingests them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Event is the payload flowing through the queue.
type Event = model.SessionEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event without blocking. Returns ErrFull when the queue
	// is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns a channel that receives events until the queue is
	// closed and drained. Receivers stop on their own ctx.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len() int

	// Capacity returns the maximum number of queued events.
	Capacity() int

	// Close stops accepting events. Queued events are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.report()
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events are passed by value through the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.events <- e:
		q.report()
		return nil
	default:
		return ErrFull
	}
}

// Dequeue returns the queue's buffered channel. Receivers take events
// straight from the buffer, so nothing is held outside Len. The channel is
// closed by Close; ctx is not observed here and receivers select on it.
func (q *InMemoryQueue) Dequeue(context.Context) <-chan Event {
	return q.events
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int { return len(q.events) }

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close stops accepting events.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Report refreshes the queue size gauges. Workers call it after each receive.
func (q *InMemoryQueue) Report() { q.report() }

func (q *InMemoryQueue) report() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
