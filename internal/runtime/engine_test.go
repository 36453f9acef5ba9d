package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NodeStore(t *testing.T) {
	e := runtime.NewEngine()

	root, err := e.NewNode("root", domain.NoNode)
	require.NoError(t, err)
	a, err := e.NewNode("a", root)
	require.NoError(t, err)
	b, err := e.NewNode("b", root)
	require.NoError(t, err)
	leaf, err := e.NewNode("leaf", a)
	require.NoError(t, err)

	assert.Equal(t, []domain.NodeID{a, b}, e.Children(root))
	assert.Equal(t, root, e.Parent(a))
	assert.Equal(t, domain.NoNode, e.Parent(root))
	assert.Equal(t, "leaf", e.Name(leaf))

	_, err = e.NewNode("orphan", domain.NodeID(99))
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	require.NoError(t, e.Destroy(a))
	assert.False(t, e.Exists(a))
	assert.False(t, e.Exists(leaf), "destroy is recursive")
	assert.Equal(t, []domain.NodeID{b}, e.Children(root))

	err = e.Request(leaf)
	assert.ErrorIs(t, err, domain.ErrNodeDestroyed)
}

func TestEngine_AttachConflicts(t *testing.T) {
	shared := pass()

	tests := []struct {
		name    string
		first   []runtime.Behavior
		second  runtime.Behavior
		wantErr error
	}{
		{"two producers", []runtime.Behavior{pass()}, fail(), domain.ErrBehaviorConflict},
		{"two composites", []runtime.Behavior{&runtime.Sequence{}}, &runtime.BubbleUp{}, domain.ErrBehaviorConflict},
		{"same kind twice", []runtime.Behavior{&runtime.Scorer{}}, &runtime.Scorer{}, domain.ErrBehaviorConflict},
		{"two interceptors", []runtime.Behavior{runtime.NewRepeat()}, &runtime.BubbleUp{}, domain.ErrBehaviorConflict},
		{"instance on two nodes", nil, shared, domain.ErrBehaviorAttached},
		{"producer plus repeat", []runtime.Behavior{pass()}, runtime.NewRepeat(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := runtime.NewEngine()
			if tt.wantErr == domain.ErrBehaviorAttached {
				node(t, e, "owner", domain.NoNode, shared)
			}
			id := node(t, e, "n", domain.NoNode, tt.first...)

			err := e.Attach(id, tt.second)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_NestedSameKindComposites(t *testing.T) {
	e := runtime.NewEngine()
	outer := node(t, e, "outer", domain.NoNode, &runtime.Sequence{})
	inner := node(t, e, "inner", outer, &runtime.Sequence{})
	node(t, e, "a", inner, pass())
	alt := node(t, e, "alt", outer, &runtime.Fallback{})
	node(t, e, "b", alt, fail())
	node(t, e, "c", alt, pass())
	last := node(t, e, "last", outer, &runtime.Fallback{})
	node(t, e, "d", last, pass())

	require.NoError(t, e.Request(outer))
	assert.Equal(t, domain.Pass, outcome(t, e, outer))

	// Stateless composites carry no per-node state; stateful ones still refuse a second owner.
	repeat := runtime.NewRepeat()
	node(t, e, "r1", domain.NoNode, pass(), repeat)
	r2, err := e.NewNode("r2", domain.NoNode)
	require.NoError(t, err)
	assert.ErrorIs(t, e.Attach(r2, repeat), domain.ErrBehaviorAttached)
}

func TestEngine_StructuralErrors(t *testing.T) {
	t.Run("repeat without producer", func(t *testing.T) {
		e := runtime.NewEngine()
		id := node(t, e, "r", domain.NoNode, runtime.NewRepeat(runtime.While(domain.Pass)))

		err := e.Request(id)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStructural)

		var se *domain.StructuralError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, domain.KindRepeat, se.Kind)
		assert.Equal(t, id, se.NodeID)
	})

	t.Run("invert with two children", func(t *testing.T) {
		e := runtime.NewEngine()
		inv := node(t, e, "not", domain.NoNode, &runtime.Invert{})
		node(t, e, "a", inv, pass())
		node(t, e, "b", inv, pass())

		assert.ErrorIs(t, e.Validate(inv), domain.ErrStructural)
		assert.ErrorIs(t, e.Request(inv), domain.ErrStructural)
	})

	t.Run("validate walks the subtree", func(t *testing.T) {
		e := runtime.NewEngine()
		root := node(t, e, "root", domain.NoNode, &runtime.Sequence{})
		node(t, e, "bad", root, &runtime.EndWith{})

		assert.ErrorIs(t, e.Validate(root), domain.ErrStructural)
	})
}

func TestEngine_RequestWithoutHandlerIsNoop(t *testing.T) {
	e := runtime.NewEngine()
	id, err := e.NewNode("bare", domain.NoNode)
	require.NoError(t, err)

	require.NoError(t, e.Request(id))
	_, ok := e.OutcomeOf(id)
	assert.False(t, ok)
	assert.False(t, e.IsRunning(id))
}

func TestEngine_HandlerOrderAndErrors(t *testing.T) {
	e := runtime.NewEngine()
	id, err := e.NewNode("n", domain.NoNode)
	require.NoError(t, err)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, e.Handle(id, domain.EventProgress, func(*runtime.Engine, domain.NodeID, runtime.Event) error {
			order = append(order, i)
			return nil
		}))
	}
	require.NoError(t, e.Send(id, runtime.Event{Kind: domain.EventProgress}))
	assert.Equal(t, []int{1, 2, 3}, order)

	boom := errors.New("boom")
	require.NoError(t, e.Handle(id, domain.EventGetOutcome, func(*runtime.Engine, domain.NodeID, runtime.Event) error {
		return boom
	}))
	assert.ErrorIs(t, e.Request(id), boom, "handler errors reach the requester")
}

func TestEngine_PropagateAndSuppression(t *testing.T) {
	e := runtime.NewEngine()
	parent, err := e.NewNode("parent", domain.NoNode)
	require.NoError(t, err)
	child := node(t, e, "child", parent, pass())
	muted := node(t, e, "muted", parent, pass(), runtime.NewRepeat())

	var seen []string
	require.NoError(t, e.Handle(parent, domain.EventProgress, func(e *runtime.Engine, id domain.NodeID, _ runtime.Event) error {
		seen = append(seen, "parent")
		return nil
	}))

	require.NoError(t, e.Propagate(child, runtime.Event{Kind: domain.EventProgress}))
	require.NoError(t, e.Propagate(muted, runtime.Event{Kind: domain.EventProgress}))
	assert.Equal(t, []string{"parent"}, seen)
	assert.True(t, e.Propagates(child))
	assert.False(t, e.Propagates(muted))
}

func TestEngine_OutcomeBubblesOnce(t *testing.T) {
	e := runtime.NewEngine()
	parent, err := e.NewNode("parent", domain.NoNode)
	require.NoError(t, err)
	child := node(t, e, "child", parent, pass())
	got := finished(t, e, parent)

	require.NoError(t, e.Request(child))
	assert.Equal(t, []domain.Outcome{domain.Pass}, *got)
	assert.Equal(t, domain.Pass, outcome(t, e, child))
	assert.False(t, e.IsRunning(child))
}

func TestEngine_RunningExcludesOutcome(t *testing.T) {
	e := runtime.NewEngine()
	id := pending(t, e, "p", domain.NoNode)

	require.NoError(t, e.Request(id))
	assert.True(t, e.IsRunning(id))
	requireConsistent(t, e, id)

	// Requests while Running are ignored.
	require.NoError(t, e.Request(id))
	assert.True(t, e.IsRunning(id))

	require.NoError(t, e.Deliver(id, domain.Pass))
	assert.False(t, e.IsRunning(id))
	assert.Equal(t, domain.Pass, outcome(t, e, id))

	require.NoError(t, e.SetRunning(id))
	_, ok := e.OutcomeOf(id)
	assert.False(t, ok)
}

func TestEngine_InterruptOnEnd(t *testing.T) {
	e := runtime.NewEngine()
	root, err := e.NewNode("root", domain.NoNode)
	require.NoError(t, err)
	a := pending(t, e, "a", root)
	b := pending(t, e, "b", root)

	require.NoError(t, e.Request(a))
	require.NoError(t, e.Request(b))
	require.NoError(t, e.SetRunning(root))

	require.NoError(t, e.Deliver(root, domain.Pass))
	assert.Equal(t, domain.Fail, outcome(t, e, a))
	assert.Equal(t, domain.Fail, outcome(t, e, b))
	requireConsistent(t, e, root)
}

func TestEngine_DeliverToDestroyedNodeIsDropped(t *testing.T) {
	e := runtime.NewEngine()
	id := pending(t, e, "p", domain.NoNode)
	require.NoError(t, e.Request(id))
	require.NoError(t, e.Destroy(id))

	assert.NoError(t, e.Deliver(id, domain.Pass))
	assert.Error(t, e.Deliver(id, domain.Outcome(0)))
}

func TestEngine_DeliverToResolvedNodeIsDropped(t *testing.T) {
	e := runtime.NewEngine()
	root, err := e.NewNode("root", domain.NoNode)
	require.NoError(t, err)
	got := finished(t, e, root)
	id := pending(t, e, "p", root)

	require.NoError(t, e.Request(id))
	require.NoError(t, e.Deliver(id, domain.Pass))
	require.NoError(t, e.Deliver(id, domain.Fail))

	assert.Equal(t, domain.Pass, outcome(t, e, id))
	assert.Equal(t, []domain.Outcome{domain.Pass}, *got)
}

func TestEngine_Inspect(t *testing.T) {
	e := runtime.NewEngine()
	root := node(t, e, "root", domain.NoNode, &runtime.Sequence{})
	a := node(t, e, "a", root, pass())
	require.NoError(t, e.SetScore(a, 0.5))

	states, err := e.Inspect(root)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, []domain.BehaviorKind{domain.KindSequence}, states[0].Kinds)
	require.NotNil(t, states[1].Score)
	assert.Equal(t, 0.5, *states[1].Score)
}
