package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisJournal_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunJournalContract(t, redis.NewFromClient(client))
}

func TestRedisJournal_Prefix(t *testing.T) {
	mr, client := newClient(t)
	j := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "run-1", domain.OutcomeRecord{RunID: "run-1", NodeName: "root", Outcome: domain.Pass}))

	assert.True(t, mr.Exists("custom:app:run:run-1"), "Expected run list with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	ids, err := j.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestRedisJournal_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)
	j := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "short", domain.OutcomeRecord{RunID: "short", Outcome: domain.Fail}))
	ids, err := j.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "short")

	mr.FastForward(2 * time.Second)
	_, err = j.Load(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRedisLocker(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "arbor:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tree-a", time.Minute)
	require.NoError(t, err)

	// A second holder blocks until the context ends.
	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "tree-a", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent.
	unlockB, err := locker.Lock(ctx, "tree-b", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))

	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "tree-a", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
