package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return s, client
}

func TestRedisLockAcquireHeldRelease(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "payment:lock:123", "delivery-a", time.Minute)
	second := NewRedisLock(client, "payment:lock:123", "delivery-b", time.Minute)

	require.NoError(t, first.Lock(ctx))

	// A concurrent delivery of the same payment must not get in.
	assert.ErrorIs(t, second.Lock(ctx), ErrLockFailed)

	require.NoError(t, first.Unlock(ctx))
	assert.NoError(t, second.Lock(ctx))
}

func TestRedisLockUnlockWithoutHolding(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "payment:lock:456", "delivery-a", time.Minute)
	assert.ErrorIs(t, l.Unlock(ctx), ErrLockNotHeld)
}

func TestRedisLockExpiredOwnerCannotRelease(t *testing.T) {
	s, client := setupRedis(t)
	ctx := context.Background()

	stale := NewRedisLock(client, "payment:lock:789", "delivery-a", 50*time.Millisecond)
	require.NoError(t, stale.Lock(ctx))

	s.FastForward(time.Second)

	fresh := NewRedisLock(client, "payment:lock:789", "delivery-b", time.Minute)
	require.NoError(t, fresh.Lock(ctx))

	// The stale holder must not delete the fresh owner's lock.
	assert.ErrorIs(t, stale.Unlock(ctx), ErrLockNotHeld)
	assert.NoError(t, fresh.Unlock(ctx))
}

func TestRedisLockDistinctKeysIndependent(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "payment:lock:a", "x", time.Minute)
	b := NewRedisLock(client, "payment:lock:b", "x", time.Minute)

	require.NoError(t, a.Lock(ctx))
	assert.NoError(t, b.Lock(ctx))
}
