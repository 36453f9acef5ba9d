package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "deploy", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:deploy"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:deploy"), "Lock key should be removed after unlock")
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "deploy", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "deploy", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, "deploy", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLocker_StaleUnlockKeepsNewHolder(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "deploy", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = locker.Lock(ctx, "deploy", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("test:lock:deploy"), "an expired holder must not release the new lock")
}

func TestSessionManager_WithRedisLocker(t *testing.T) {
	mr, client := newClient(t)
	mgr := session.NewManager(redis.NewFromClient(client), session.WithLocker(redis.NewLocker(client, "arbor:")))

	err := mgr.WithLock(context.Background(), "deploy", func(context.Context) error {
		assert.True(t, mr.Exists("arbor:lock:deploy"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("arbor:lock:deploy"))
}
