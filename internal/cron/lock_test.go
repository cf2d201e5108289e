package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values  map[string]string
	deletes int
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	m.deletes++
	return true, nil
}

func TestRedisLockerIsExclusive(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()
	locker, err := NewRedisLocker(store, "store:lock:cron", 0)
	require.NoError(t, err)

	lease, err := locker.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, lease)
	assert.WithinDuration(t, time.Now().Add(defaultLockTTL), lease.Expires(), time.Minute)

	other, err := locker.TryLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	assert.Equal(t, 1, store.deletes)
	assert.Empty(t, store.values)

	again, err := locker.TryLock(ctx)
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestLeaseDoesNotReleaseForeignOwner(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()
	locker, err := NewRedisLocker(store, "k", time.Minute)
	require.NoError(t, err)

	lease, err := locker.TryLock(ctx)
	require.NoError(t, err)
	// simulate expiry and takeover by another worker
	store.values["k"] = "someone-else"

	require.NoError(t, lease.Release(ctx))
	assert.Equal(t, "someone-else", store.values["k"])
}

func TestNewRedisLockerValidates(t *testing.T) {
	_, err := NewRedisLocker(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLocker(&memoryStore{}, "", 0)
	assert.Error(t, err)
}
