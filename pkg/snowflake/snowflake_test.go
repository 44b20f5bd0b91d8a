package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDGeneratorNodeRange(t *testing.T) {
	_, err := NewIDGenerator(0)
	assert.NoError(t, err)

	_, err = NewIDGenerator(1023)
	assert.NoError(t, err)

	_, err = NewIDGenerator(1024)
	assert.ErrorIs(t, err, ErrInvalidNodeID)

	_, err = NewIDGenerator(-1)
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestNextIDMonotonic(t *testing.T) {
	g, err := NewIDGenerator(1)
	require.NoError(t, err)

	prev := g.NextID()
	for i := 0; i < 10000; i++ {
		id := g.NextID()
		require.Greater(t, id, prev, "ids must be strictly increasing")
		prev = id
	}
}

func TestNextIDUniqueUnderConcurrency(t *testing.T) {
	g, err := NewIDGenerator(1)
	require.NoError(t, err)

	const goroutines = 8
	const perGoroutine = 2000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				ids = append(ids, g.NextID())
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestParseIDRoundTrip(t *testing.T) {
	g, err := NewIDGenerator(42)
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	id := g.NextID()
	after := time.Now().UnixMilli()

	ts, nodeID, step := ParseID(id)
	assert.Equal(t, int64(42), nodeID)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
	assert.GreaterOrEqual(t, step, int64(0))
	assert.Equal(t, ts, GetTimestamp(id))
}

func BenchmarkNextID(b *testing.B) {
	g, _ := NewIDGenerator(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.NextID()
	}
}
