package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryMessageQueuePublishConsume(t *testing.T) {
	q := NewMemoryMessageQueue()
	defer q.Close()

	ctx := context.Background()
	err := q.Publish(ctx, "ad.published", []byte(`{"ad_id":1}`))
	assert.NoError(t, err)

	msg, err := q.Consume(ctx, "ad.published")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"ad_id":1}`), msg)
}

func TestMemoryMessageQueueConsumeCancelled(t *testing.T) {
	q := NewMemoryMessageQueue()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx, "empty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryMessageQueueClosed(t *testing.T) {
	q := NewMemoryMessageQueue()
	assert.NoError(t, q.Close())

	err := q.Publish(context.Background(), "t", []byte("x"))
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, err = q.Consume(context.Background(), "t")
	assert.ErrorIs(t, err, ErrQueueClosed)

	assert.NoError(t, q.Close())
}

func TestMemoryMessageQueueCloseUnblocksConsume(t *testing.T) {
	q := NewMemoryMessageQueue()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Consume(context.Background(), "empty")
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, q.Close())
	assert.ErrorIs(t, <-errCh, ErrQueueClosed)
}

// A publish that overflowed into a background handoff must survive a
// concurrent Close without panicking.
func TestMemoryMessageQueueCloseDuringOverflow(t *testing.T) {
	q := NewMemoryMessageQueue()
	ctx := context.Background()

	// The topic buffer holds 1000 messages, everything past that is
	// handed off to background goroutines.
	for i := 0; i < 1100; i++ {
		assert.NoError(t, q.Publish(ctx, "full", []byte("m")))
	}

	assert.NoError(t, q.Close())
	time.Sleep(50 * time.Millisecond)
}

func TestMemoryMessageQueueTopicsIsolated(t *testing.T) {
	q := NewMemoryMessageQueue()
	defer q.Close()

	ctx := context.Background()
	assert.NoError(t, q.Publish(ctx, "a", []byte("1")))
	assert.NoError(t, q.Publish(ctx, "b", []byte("2")))

	msg, err := q.Consume(ctx, "b")
	assert.NoError(t, err)
	assert.Equal(t, []byte("2"), msg)
}
