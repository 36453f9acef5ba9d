package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesPerKey(t *testing.T) {
	manager := session.NewManager(memory.NewJournal())
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "build", func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestManager_PropagatesError(t *testing.T) {
	manager := session.NewManager(memory.NewJournal())
	boom := errors.New("boom")

	err := manager.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestManager_Journal(t *testing.T) {
	manager := session.NewManager(memory.NewJournal())
	ctx := context.Background()

	require.NoError(t, manager.Record(ctx, "r1", domain.OutcomeRecord{RunID: "r1", NodeName: "root", Outcome: domain.Pass}))
	recs, err := manager.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)

	require.NoError(t, manager.Delete(ctx, "r1"))
	_, err = manager.Load(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	manager := session.NewManager(
		redis.NewFromClient(client),
		session.WithLocker(redis.NewLocker(client, "arbor:")),
		session.WithLockTTL(time.Minute),
	)

	err = manager.WithLock(context.Background(), "deploy", func(context.Context) error {
		assert.True(t, mr.Exists("arbor:lock:deploy"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("arbor:lock:deploy"), "lock released after fn")
}
