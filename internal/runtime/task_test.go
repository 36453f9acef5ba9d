package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskCounter struct {
	mu        sync.Mutex
	spawned   int
	released  int
	cancelled int
}

func (c *taskCounter) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskSpawn: func(context.Context, *domain.TaskEvent) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.spawned++
		},
		OnTaskRelease: func(_ context.Context, ev *domain.TaskEvent) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.released++
			if ev.Cancelled {
				c.cancelled++
			}
		},
	}
}

func (c *taskCounter) counts() (spawned, released, cancelled int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawned, c.released, c.cancelled
}

func blockUntilCancelled(ctx context.Context, _ runtime.Emitter) (domain.Outcome, error) {
	<-ctx.Done()
	return domain.Fail, ctx.Err()
}

// drive ticks until id resolves.
func drive(t *testing.T, e *runtime.Engine, id domain.NodeID) domain.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		if o, ok := e.OutcomeOf(id); ok && !e.IsRunning(id) {
			return o
		}
		require.NoError(t, e.Wait(ctx))
		_, err := e.Tick()
		require.NoError(t, err)
	}
}

func TestExternalTask_PassesOnSuccess(t *testing.T) {
	var c taskCounter
	e := runtime.NewEngine(runtime.WithLifecycleHooks(c.hooks()))
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: func(context.Context, runtime.Emitter) (domain.Outcome, error) {
		return domain.Pass, nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := e.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Pass, o)

	spawned, released, cancelled := c.counts()
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, cancelled)
	assert.Nil(t, e.TaskOf(id))
}

func TestExternalTask_ErrorFails(t *testing.T) {
	e := runtime.NewEngine()
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: func(context.Context, runtime.Emitter) (domain.Outcome, error) {
		return domain.Pass, errors.New("connection refused")
	}})

	require.NoError(t, e.Request(id))
	assert.True(t, e.IsRunning(id))
	assert.Equal(t, domain.Fail, drive(t, e, id))
}

func TestExternalTask_PanicFails(t *testing.T) {
	e := runtime.NewEngine()
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: func(context.Context, runtime.Emitter) (domain.Outcome, error) {
		panic("bad task")
	}})

	require.NoError(t, e.Request(id))
	assert.Equal(t, domain.Fail, drive(t, e, id))
}

func TestExternalTask_InterruptReleasesOnce(t *testing.T) {
	var c taskCounter
	e := runtime.NewEngine(runtime.WithLifecycleHooks(c.hooks()))
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: blockUntilCancelled})

	require.NoError(t, e.Request(id))
	h := e.TaskOf(id)
	require.NotNil(t, h)

	require.NoError(t, e.Interrupt(id))
	require.NoError(t, e.Interrupt(id))
	assert.True(t, h.Released())
	assert.True(t, e.IsRunning(id), "the node resolves when the work returns")

	assert.Equal(t, domain.Fail, drive(t, e, id))

	spawned, released, cancelled := c.counts()
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, cancelled)
}

func TestExternalTask_LateInterruptWins(t *testing.T) {
	var c taskCounter
	e := runtime.NewEngine(runtime.WithLifecycleHooks(c.hooks()))
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: func(context.Context, runtime.Emitter) (domain.Outcome, error) {
		return domain.Pass, nil
	}})

	require.NoError(t, e.Request(id))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// The completion is queued but not yet delivered.
	require.NoError(t, e.Wait(ctx))
	require.NoError(t, e.Interrupt(id))

	assert.Equal(t, domain.Fail, drive(t, e, id))
	_, released, cancelled := c.counts()
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, cancelled)
}

func TestExternalTask_DestroyCancelsOnce(t *testing.T) {
	var c taskCounter
	e := runtime.NewEngine(runtime.WithLifecycleHooks(c.hooks()))

	var wg sync.WaitGroup
	wg.Add(1)
	root, err := e.NewNode("root", domain.NoNode)
	require.NoError(t, err)
	id := node(t, e, "job", root, &runtime.ExternalTask{Fn: func(ctx context.Context, emit runtime.Emitter) (domain.Outcome, error) {
		defer wg.Done()
		return blockUntilCancelled(ctx, emit)
	}})

	require.NoError(t, e.Request(id))
	require.NoError(t, e.Destroy(root))
	wg.Wait()

	_, err = e.Tick()
	require.NoError(t, err, "completion of a destroyed node is dropped")

	_, released, cancelled := c.counts()
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, cancelled)
}

func TestExternalTask_ProgressIsSeparateFromOutcome(t *testing.T) {
	e := runtime.NewEngine()
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: func(_ context.Context, emit runtime.Emitter) (domain.Outcome, error) {
		emit(domain.OutputLine{Line: "building"})
		emit(domain.OutputLine{Line: "warning", IsErr: true})
		return domain.Pass, nil
	}})

	var lines []domain.OutputLine
	require.NoError(t, e.Handle(id, domain.EventProgress, func(_ *runtime.Engine, _ domain.NodeID, ev runtime.Event) error {
		lines = append(lines, ev.Payload.(domain.OutputLine))
		return nil
	}))

	require.NoError(t, e.Request(id))
	assert.Equal(t, domain.Pass, drive(t, e, id))
	assert.Equal(t, []domain.OutputLine{{Line: "building"}, {Line: "warning", IsErr: true}}, lines)
}

func TestExternalTask_SequenceOfTasks(t *testing.T) {
	e := runtime.NewEngine()
	ok := func(context.Context, runtime.Emitter) (domain.Outcome, error) { return domain.Pass, nil }

	seq := node(t, e, "seq", domain.NoNode, &runtime.Sequence{})
	node(t, e, "fetch", seq, &runtime.ExternalTask{Fn: ok})
	node(t, e, "build", seq, &runtime.ExternalTask{Fn: ok})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := e.Run(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, domain.Pass, o)
}

func TestRun_CancelInterruptsRoot(t *testing.T) {
	var c taskCounter
	e := runtime.NewEngine(runtime.WithLifecycleHooks(c.hooks()))
	id := node(t, e, "job", domain.NoNode, &runtime.ExternalTask{Fn: blockUntilCancelled})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Run(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, released, _ := c.counts()
	assert.Equal(t, 1, released)
}

func TestPost_IsGoroutineSafe(t *testing.T) {
	e := runtime.NewEngine()
	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Post(func() error {
				count++
				return nil
			})
		}()
	}
	wg.Wait()

	n, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, 50, count)
}
