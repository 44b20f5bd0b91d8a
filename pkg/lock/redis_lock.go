// Package lock provides a minimal redis lock used to serialize webhook
// deliveries of the same gateway payment. It is single-node SetNX with
// an owner token, not a consensus lock.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockFailed someone else holds the lock
	ErrLockFailed = errors.New("failed to acquire lock")
	// ErrLockNotHeld the lock expired or belongs to another owner
	ErrLockNotHeld = errors.New("lock not held")
)

// unlockScript deletes the key only when it still carries our token,
// so an expired lock reacquired by someone else is never released by us.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// RedisLock is one named lock with an owner token and a TTL. The TTL
// bounds how long a crashed holder can block the next delivery.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedisLock creates a lock handle. Nothing is acquired yet.
func NewRedisLock(client *redis.Client, key, token string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		token:  token,
		ttl:    ttl,
	}
}

// Lock acquires the lock or returns ErrLockFailed if it is taken.
func (l *RedisLock) Lock(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockFailed
	}
	return nil
}

// Unlock releases the lock if we still own it.
func (l *RedisLock) Unlock(ctx context.Context) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
