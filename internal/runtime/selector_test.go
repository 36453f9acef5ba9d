package runtime_test

import (
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSelector_Preemption(t *testing.T) {
	e := runtime.NewEngine()
	rec := runtime.Collect(e)

	sel := node(t, e, "sel", domain.NoNode, &runtime.ScoreSelector{})
	a := pending(t, e, "a", sel)
	b := pending(t, e, "b", sel)
	require.NoError(t, e.SetScore(a, 0.2))
	require.NoError(t, e.SetScore(b, 0.9))

	var interrupted []string
	e.Observe(domain.EventInterrupt, func(e *runtime.Engine, id domain.NodeID, _ runtime.Event) error {
		interrupted = append(interrupted, e.Name(id))
		return nil
	})

	require.NoError(t, e.Request(sel))
	assert.True(t, e.IsRunning(b))
	assert.False(t, e.IsRunning(a))
	assert.Equal(t, []string{"sel", "b"}, rec.Requests())

	require.NoError(t, e.SetScore(a, 0.95))
	// Re-selection waits for the next cycle.
	assert.True(t, e.IsRunning(b))
	assert.Empty(t, interrupted)

	_, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, interrupted)
	assert.True(t, e.IsRunning(a))
	assert.False(t, e.IsRunning(b))
	assert.True(t, e.IsRunning(sel), "an interrupted child does not resolve the selector")
	assert.Equal(t, []string{"sel", "b", "a"}, rec.Requests())
	requireConsistent(t, e, sel)

	require.NoError(t, e.Deliver(a, domain.Pass))
	assert.Equal(t, domain.Pass, outcome(t, e, sel))
}

func TestScoreSelector_Selection(t *testing.T) {
	tests := []struct {
		name   string
		scores []*float64
		want   string
	}{
		{"highest wins", []*float64{f(0.1), f(0.7), f(0.3)}, "c1"},
		{"ties go left", []*float64{f(0.5), f(0.5)}, "c0"},
		{"unscored children are skipped", []*float64{nil, f(-1)}, "c1"},
		{"nothing scored stays pending", []*float64{nil, nil}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := runtime.NewEngine()
			rec := runtime.Collect(e)
			sel := node(t, e, "sel", domain.NoNode, &runtime.ScoreSelector{})
			for i, s := range tt.scores {
				id := pending(t, e, "c"+string(rune('0'+i)), sel)
				if s != nil {
					require.NoError(t, e.SetScore(id, *s))
				}
			}

			require.NoError(t, e.Request(sel))
			assert.True(t, e.IsRunning(sel))
			reqs := rec.Requests()[1:]
			if tt.want == "" {
				assert.Empty(t, reqs)
				return
			}
			assert.Equal(t, []string{tt.want}, reqs)
		})
	}
}

func TestScoreSelector_StableWhileBestRuns(t *testing.T) {
	e := runtime.NewEngine()
	rec := runtime.Collect(e)
	sel := node(t, e, "sel", domain.NoNode, &runtime.ScoreSelector{})
	a := pending(t, e, "a", sel)
	b := pending(t, e, "b", sel)
	require.NoError(t, e.SetScore(a, 1))
	require.NoError(t, e.SetScore(b, 0))

	require.NoError(t, e.Request(sel))
	require.NoError(t, e.SetScore(a, 2))
	require.NoError(t, e.SetScore(b, 1))
	_, err := e.Tick()
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Count("a"))
	assert.Equal(t, 0, rec.Count("b"))
}

func TestScoreSelector_PendingUntilScored(t *testing.T) {
	e := runtime.NewEngine()
	sel := node(t, e, "sel", domain.NoNode, &runtime.ScoreSelector{})
	a := node(t, e, "a", sel, fail())

	require.NoError(t, e.Request(sel))
	assert.True(t, e.IsRunning(sel))

	require.NoError(t, e.SetScore(a, 0.1))
	_, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, domain.Fail, outcome(t, e, sel))
}

func TestScoreSelector_ScorerIsPulled(t *testing.T) {
	e := runtime.NewEngine()
	weight := map[string]float64{"a": 1, "b": 2}
	scorer := func() runtime.Behavior {
		return &runtime.Scorer{Fn: func(e *runtime.Engine, id domain.NodeID) (float64, bool, error) {
			w, ok := weight[e.Name(id)]
			return w, ok, nil
		}}
	}

	sel := node(t, e, "sel", domain.NoNode, &runtime.ScoreSelector{})
	node(t, e, "a", sel, pass(), scorer())
	node(t, e, "b", sel, fail(), scorer())

	require.NoError(t, e.Request(sel))
	assert.Equal(t, domain.Fail, outcome(t, e, sel))

	weight["a"] = 3
	require.NoError(t, e.Request(sel))
	assert.Equal(t, domain.Pass, outcome(t, e, sel))
}

func f(v float64) *float64 { return &v }
