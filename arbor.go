package arbor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/google/uuid"
)

// Version is the library version reported by the CLI and servers.
var Version = "0.1.0"

type (
	// Core is the single-owner engine handed to handlers and leaf functions.
	Core = runtime.Engine
	// Behavior is a bundle of handlers attached to one node.
	Behavior  = runtime.Behavior
	Traits    = runtime.Traits
	Event     = runtime.Event
	Handler   = runtime.Handler
	LeafFunc  = runtime.LeafFunc
	ScoreFunc = runtime.ScoreFunc
	TaskFunc  = runtime.TaskFunc
	Emitter   = runtime.Emitter
	NodeState = runtime.NodeState
	Recorder  = runtime.Recorder

	NodeID         = domain.NodeID
	Outcome        = domain.Outcome
	OutputLine     = domain.OutputLine
	EventKind      = domain.EventKind
	LifecycleHooks = domain.LifecycleHooks

	Latency      = runtime.Latency
	RepeatOption = runtime.RepeatOption
)

const (
	Pass   = domain.Pass
	Fail   = domain.Fail
	NoNode = domain.NoNode

	NextTick  = runtime.NextTick
	Immediate = runtime.Immediate
)

// Engine is the high-level entry point for the library.
// It embeds the runtime core, so the build, dispatch, outcome and
// external-task operations are available directly.
type Engine struct {
	*runtime.Engine

	loader   *loader.Loader
	source   ports.TreeSource
	registry *registry.Registry
	hooks    []domain.LifecycleHooks
	ctx      context.Context
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated use chains them.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithContext sets the parent context of every external task.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

// WithSource sets where LoadTree reads definitions from.
func WithSource(src ports.TreeSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithRegistry sets the behavior kinds available to LoadTree.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.registry == nil {
		eng.registry = registry.Default()
	}

	rtOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(observability.Chain(eng.hooks...)),
	}
	if eng.ctx != nil {
		rtOpts = append(rtOpts, runtime.WithContext(eng.ctx))
	}
	eng.Engine = runtime.NewEngine(rtOpts...)

	if eng.source != nil {
		eng.loader = loader.New(eng.source, loader.WithRegistry(eng.registry), loader.WithLogger(eng.logger))
	}
	return eng
}

// Core returns the runtime core, for code written against handler signatures.
func (e *Engine) Core() *Core { return e.Engine }

// Registry returns the behavior kinds used by LoadTree and BuildTree.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// LoadTree reads the named definition from the configured source and
// builds it into the engine.
func (e *Engine) LoadTree(name string) (*loader.Tree, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("load %s: no tree source configured", name)
	}
	return e.loader.Load(e.Engine, name)
}

// BuildTree builds an already parsed definition into the engine.
func (e *Engine) BuildTree(def *loader.Definition) (*loader.Tree, error) {
	l := e.loader
	if l == nil {
		l = loader.New(nil, loader.WithRegistry(e.registry), loader.WithLogger(e.logger))
	}
	return l.Build(e.Engine, def)
}

// NewRunID returns a fresh identifier for a journaled run.
func NewRunID() string {
	return uuid.NewString()
}

// Collect records requests and outcomes of every node, in order.
func Collect(e *Engine) *Recorder {
	return runtime.Collect(e.Engine)
}
