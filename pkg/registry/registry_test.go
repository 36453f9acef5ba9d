package registry_test

import (
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Builtins(t *testing.T) {
	reg := registry.Default()

	tests := []struct {
		kind    domain.BehaviorKind
		params  map[string]any
		check   func(t *testing.T, b runtime.Behavior)
		wantErr bool
	}{
		{kind: domain.KindSequence, check: func(t *testing.T, b runtime.Behavior) {
			assert.IsType(t, &runtime.Sequence{}, b)
		}},
		{kind: domain.KindEndWith, params: map[string]any{"outcome": "fail"}, check: func(t *testing.T, b runtime.Behavior) {
			assert.Equal(t, domain.Fail, b.(*runtime.EndWith).Outcome)
		}},
		{kind: domain.KindSucceedTimes, params: map[string]any{"n": "3"}, check: func(t *testing.T, b runtime.Behavior) {
			assert.Equal(t, 3, b.(*runtime.SucceedTimes).N)
		}},
		{kind: domain.KindRepeat, params: map[string]any{"while": "pass", "immediate": true}, check: func(t *testing.T, b runtime.Behavior) {
			r := b.(*runtime.Repeat)
			assert.Equal(t, domain.Pass, r.While)
			assert.Equal(t, runtime.Immediate, r.Latency)
		}},
		{kind: domain.KindEndWith, params: map[string]any{"outcome": "sometimes"}, wantErr: true},
		{kind: domain.KindSequence, params: map[string]any{"unexpected": 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			b, err := reg.Build(tt.kind, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, b.Kind())
			tt.check(t, b)
		})
	}
}

func TestRegistry_FreshValues(t *testing.T) {
	reg := registry.Default()
	a, err := reg.Build(domain.KindSucceedTimes, map[string]any{"n": 2})
	require.NoError(t, err)
	b, err := reg.Build(domain.KindSucceedTimes, map[string]any{"n": 2})
	require.NoError(t, err)
	assert.NotSame(t, a, b, "stateful behaviors are built per node")
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := registry.NewRegistry().Build("teleport", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownBehavior)
}

func TestRegistry_CustomKind(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("always", func(map[string]any) (runtime.Behavior, error) {
		return &runtime.EndWith{Outcome: domain.Pass}, nil
	})

	assert.True(t, reg.Has("always"))
	assert.Equal(t, []domain.BehaviorKind{"always"}, reg.Kinds())
}

func TestDecode(t *testing.T) {
	var p struct {
		Timeout time.Duration  `mapstructure:"timeout"`
		Args    []string       `mapstructure:"args"`
		Outcome domain.Outcome `mapstructure:"outcome"`
	}
	err := registry.Decode(map[string]any{"timeout": "2s", "args": "a,b", "outcome": "pass"}, &p)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, p.Timeout)
	assert.Equal(t, []string{"a", "b"}, p.Args)
	assert.Equal(t, domain.Pass, p.Outcome)
}
