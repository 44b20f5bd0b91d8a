package queue

import (
	"context"
	"errors"
	"sync"
)

// MessageQueue decouples ad publication and notification fan-out from
// the conversational handlers that trigger them.
type MessageQueue interface {
	// Publish publishes a message to a topic
	Publish(ctx context.Context, topic string, message []byte) error
	// Consume consumes a message from a topic, blocking until one is
	// available or the context is cancelled
	Consume(ctx context.Context, topic string) ([]byte, error)
	// Close closes the queue
	Close() error
}

// Common errors
var (
	ErrQueueClosed    = errors.New("queue is closed")
	ErrPublishTimeout = errors.New("publish timeout")
)

// MemoryMessageQueue in-memory message queue implementation
type MemoryMessageQueue struct {
	queues map[string]chan []byte
	mu     sync.RWMutex
	done   chan struct{}
	closed bool
}

// NewMemoryMessageQueue creates a new in-memory message queue
func NewMemoryMessageQueue() *MemoryMessageQueue {
	return &MemoryMessageQueue{
		queues: make(map[string]chan []byte),
		done:   make(chan struct{}),
	}
}

func (q *MemoryMessageQueue) topic(name string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan []byte, 1000)
		q.queues[name] = ch
	}
	return ch
}

// Publish publishes a message to a topic
func (q *MemoryMessageQueue) Publish(ctx context.Context, topic string, message []byte) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	ch := q.topic(topic)
	select {
	case ch <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Buffer full, hand off in background. Topic channels are
		// never closed, so this send cannot panic; the done channel
		// releases the goroutine when the queue shuts down.
		go func() {
			select {
			case ch <- message:
			case <-ctx.Done():
			case <-q.done:
			}
		}()
		return nil
	}
}

// Consume consumes a message from a topic
func (q *MemoryMessageQueue) Consume(ctx context.Context, topic string) ([]byte, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, ErrQueueClosed
	}

	ch := q.topic(topic)
	select {
	case message := <-ch:
		return message, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	}
}

// Close closes the queue and wakes every blocked consumer. The topic
// channels themselves stay open: an in-flight Publish handoff may
// still be holding one, closing it would panic that goroutine.
func (q *MemoryMessageQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	return nil
}
