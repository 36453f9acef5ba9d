package runtime_test

import (
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/require"
)

func node(t *testing.T, e *runtime.Engine, name string, parent domain.NodeID, bs ...runtime.Behavior) domain.NodeID {
	t.Helper()
	id, err := e.NewNode(name, parent)
	require.NoError(t, err)
	require.NoError(t, e.Attach(id, bs...))
	return id
}

func pass() runtime.Behavior { return &runtime.EndWith{Outcome: domain.Pass} }
func fail() runtime.Behavior { return &runtime.EndWith{Outcome: domain.Fail} }

// pending is a leaf that stays Running until delivered to, and fails on interrupt.
func pending(t *testing.T, e *runtime.Engine, name string, parent domain.NodeID) domain.NodeID {
	t.Helper()
	id := node(t, e, name, parent, runtime.Leaf(func(e *runtime.Engine, id domain.NodeID) error {
		return e.SetRunning(id)
	}))
	require.NoError(t, e.Handle(id, domain.EventInterrupt, func(e *runtime.Engine, id domain.NodeID, _ runtime.Event) error {
		return e.Deliver(id, domain.Fail)
	}))
	return id
}

// finished records ChildFinished notifications received by id.
func finished(t *testing.T, e *runtime.Engine, id domain.NodeID) *[]domain.Outcome {
	t.Helper()
	var got []domain.Outcome
	require.NoError(t, e.Handle(id, domain.EventChildFinished, func(_ *runtime.Engine, _ domain.NodeID, ev runtime.Event) error {
		got = append(got, ev.Outcome)
		return nil
	}))
	return &got
}

// requireConsistent checks that no node is Running while carrying an outcome.
func requireConsistent(t *testing.T, e *runtime.Engine, root domain.NodeID) {
	t.Helper()
	states, err := e.Inspect(root)
	require.NoError(t, err)
	for _, st := range states {
		if st.Running {
			require.Zero(t, st.Outcome, "node %s is running with an outcome", st.Name)
		}
	}
}

func outcome(t *testing.T, e *runtime.Engine, id domain.NodeID) domain.Outcome {
	t.Helper()
	o, ok := e.OutcomeOf(id)
	require.True(t, ok, "node %s has no outcome", e.Name(id))
	return o
}
