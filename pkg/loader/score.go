package loader

import (
	"fmt"
	"sync"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ScoreEnv is the environment a score_expr is evaluated against.
type ScoreEnv struct {
	Name    string         `expr:"name"`
	Running bool           `expr:"running"`
	Outcome string         `expr:"outcome"`
	Vars    map[string]any `expr:"vars"`
}

// Bindings holds the tree variables visible to score expressions.
// It is safe for concurrent use.
type Bindings struct {
	mu   sync.RWMutex
	vars map[string]any
}

// NewBindings copies seed into a new Bindings.
func NewBindings(seed map[string]any) *Bindings {
	b := &Bindings{vars: make(map[string]any, len(seed))}
	for k, v := range seed {
		b.vars[k] = v
	}
	return b
}

// Set assigns a variable.
func (b *Bindings) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vars[key] = value
}

// Get returns a variable.
func (b *Bindings) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.vars[key]
	return v, ok
}

// Snapshot returns a copy of all variables.
func (b *Bindings) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.vars))
	for k, v := range b.vars {
		out[k] = v
	}
	return out
}

// CompileScore compiles a score expression. The result must be numeric.
func CompileScore(src string) (*vm.Program, error) {
	program, err := expr.Compile(src,
		expr.Env(ScoreEnv{}),
		expr.AsFloat64(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid score_expr %q: %w", src, err)
	}
	return program, nil
}

// ExprScorer returns a Scorer evaluating program on every selection pass.
func ExprScorer(program *vm.Program, vars *Bindings) *runtime.Scorer {
	return &runtime.Scorer{Fn: func(e *runtime.Engine, id domain.NodeID) (float64, bool, error) {
		env := ScoreEnv{
			Name:    e.Name(id),
			Running: e.IsRunning(id),
			Vars:    vars.Snapshot(),
		}
		if o, ok := e.OutcomeOf(id); ok {
			env.Outcome = o.String()
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return 0, false, err
		}
		score, ok := out.(float64)
		if !ok {
			return 0, false, fmt.Errorf("score_expr returned %T", out)
		}
		return score, true, nil
	}}
}
