package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The TTL outlives one daily sweep so a crashed holder cannot wedge the
// schedule for more than a cycle.
const fallbackLockTTL = 25 * time.Hour

// Lock gates a sweep so only one worker instance runs it at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockStore is the slice of the Redis client the lock needs.
type LockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type redisLock struct {
	store LockStore
	key   string
	ttl   time.Duration
	token string
}

// NewRedisLock returns a Lock backed by a Redis SETNX key with a TTL.
// Each acquisition stores a fresh token so Release only deletes keys
// this instance still owns.
func NewRedisLock(store LockStore, key string, ttl time.Duration) (Lock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = fallbackLockTTL
	}
	return &redisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	held, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if held {
		l.token = token
	}
	return held, nil
}

// Release deletes the key only while this instance's token is still in it.
// An expired lock that another worker re-acquired is left alone.
func (l *redisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		l.token = ""
		return nil
	case err != nil:
		return fmt.Errorf("read lock %s: %w", l.key, err)
	case current != l.token:
		l.token = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("del lock %s: %w", l.key, err)
	}
	l.token = ""
	return nil
}
