package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Factory builds a fresh behavior from the "with" parameters of a tree
// definition. Every call must return a new value: behaviors attach to
// exactly one node.
type Factory func(params map[string]any) (runtime.Behavior, error)

// Registry maps behavior kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[domain.BehaviorKind]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[domain.BehaviorKind]Factory),
	}
}

// Register adds a factory to the registry.
// If a factory with the same kind exists, it is overwritten.
func (r *Registry) Register(kind domain.BehaviorKind, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = fn
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind domain.BehaviorKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Build looks up a factory by kind and calls it.
// Returns domain.ErrUnknownBehavior if the kind is not registered.
func (r *Registry) Build(kind domain.BehaviorKind, params map[string]any) (runtime.Behavior, error) {
	r.mu.RLock()
	fn, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, domain.ErrUnknownBehavior)
	}
	b, err := fn(params)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	return b, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []domain.BehaviorKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.BehaviorKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Decode copies params into out, a pointer to a struct with mapstructure
// tags. Strings decode into types implementing encoding.TextUnmarshaler
// (e.g. domain.Outcome) and durations; unknown keys are rejected.
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
