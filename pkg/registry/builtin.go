package registry

import (
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

// RepeatParams configures the "repeat" kind.
type RepeatParams struct {
	While     domain.Outcome `mapstructure:"while"`
	Forever   bool           `mapstructure:"forever"`
	Immediate bool           `mapstructure:"immediate"`
}

// Repeat builds a Repeat from its parameters.
func (p RepeatParams) Repeat() *runtime.Repeat {
	opts := []runtime.RepeatOption{}
	if p.While != 0 {
		opts = append(opts, runtime.While(p.While))
	}
	if p.Forever {
		opts = append(opts, runtime.Forever())
	}
	if p.Immediate {
		opts = append(opts, runtime.WithLatency(runtime.Immediate))
	}
	return runtime.NewRepeat(opts...)
}

// Default returns a registry holding every built-in kind that can be
// described by parameters alone.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins adds the built-in kinds to r.
func RegisterBuiltins(r *Registry) {
	noParams := func(mk func() runtime.Behavior) Factory {
		return func(params map[string]any) (runtime.Behavior, error) {
			if err := Decode(params, &struct{}{}); err != nil {
				return nil, err
			}
			return mk(), nil
		}
	}

	r.Register(domain.KindSequence, noParams(func() runtime.Behavior { return &runtime.Sequence{} }))
	r.Register(domain.KindFallback, noParams(func() runtime.Behavior { return &runtime.Fallback{} }))
	r.Register(domain.KindParallel, noParams(func() runtime.Behavior { return &runtime.Parallel{} }))
	r.Register(domain.KindScoreSelector, noParams(func() runtime.Behavior { return &runtime.ScoreSelector{} }))
	r.Register(domain.KindBubbleUp, noParams(func() runtime.Behavior { return &runtime.BubbleUp{} }))
	r.Register(domain.KindInvert, noParams(func() runtime.Behavior { return &runtime.Invert{} }))

	r.Register(domain.KindEndWith, func(params map[string]any) (runtime.Behavior, error) {
		var p struct {
			Outcome domain.Outcome `mapstructure:"outcome"`
		}
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &runtime.EndWith{Outcome: p.Outcome}, nil
	})

	r.Register(domain.KindSucceedTimes, func(params map[string]any) (runtime.Behavior, error) {
		var p struct {
			N int `mapstructure:"n"`
		}
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &runtime.SucceedTimes{N: p.N}, nil
	})

	r.Register(domain.KindRepeat, func(params map[string]any) (runtime.Behavior, error) {
		var p RepeatParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return p.Repeat(), nil
	})
}
