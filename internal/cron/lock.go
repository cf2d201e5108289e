package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 50 * time.Minute

// Locker hands out the cycle lease so only one worker reconciles at a time.
// A nil Lease with a nil error means another worker holds it.
type Locker interface {
	TryLock(ctx context.Context) (*Lease, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLocker leases a single Redis key with a random owner token.
type RedisLocker struct {
	store lockStore
	key   string
	ttl   time.Duration
}

func NewRedisLocker(store lockStore, key string, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{store: l.store, key: l.key, token: token, expires: time.Now().Add(l.ttl)}, nil
}

// Lease is one held lock. Release is safe to call more than once.
type Lease struct {
	store   lockStore
	key     string
	token   string
	expires time.Time
}

// Expires reports when the lease lapses if never released.
func (l *Lease) Expires() time.Time { return l.expires }

// Release gives the key back unless it already expired and was taken by
// someone else.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
