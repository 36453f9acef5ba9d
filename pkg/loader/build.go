package loader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// Tree is a definition built into an engine.
type Tree struct {
	Def  *Definition
	Root domain.NodeID
	Vars *Bindings

	nodes  map[string]domain.NodeID
	scored []domain.NodeID
}

// Node returns the engine ID of the node with the given name.
func (t *Tree) Node(name string) (domain.NodeID, bool) {
	id, ok := t.nodes[name]
	return id, ok
}

// Names maps engine IDs back to node names.
func (t *Tree) Names() map[domain.NodeID]string {
	out := make(map[domain.NodeID]string, len(t.nodes))
	for name, id := range t.nodes {
		out[id] = name
	}
	return out
}

// SetVar updates a tree variable and asks every expression-scored node to
// be scored again. It must run on the engine's owner goroutine; other
// goroutines wrap it in Engine.Post.
func (t *Tree) SetVar(e *runtime.Engine, key string, value any) error {
	t.Vars.Set(key, value)
	for _, id := range t.scored {
		if err := e.Rescore(id); err != nil {
			return err
		}
	}
	return nil
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry sets the kind table. The default is registry.Default().
func WithRegistry(reg *registry.Registry) Option {
	return func(l *Loader) {
		if reg != nil {
			l.registry = reg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader resolves definitions from a source and builds them.
type Loader struct {
	source   ports.TreeSource
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a Loader reading from source.
func New(source ports.TreeSource, opts ...Option) *Loader {
	l := &Loader{
		source:   source,
		registry: registry.Default(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the kind table used for builds.
func (l *Loader) Registry() *registry.Registry { return l.registry }

// Source returns the underlying tree source.
func (l *Loader) Source() ports.TreeSource { return l.source }

// List returns the names of the available trees.
func (l *Loader) List() ([]string, error) {
	return l.source.ListTrees()
}

// Definition loads and parses a tree without building it.
func (l *Loader) Definition(name string) (*Definition, error) {
	data, err := l.source.GetTree(name)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", name, err)
	}
	return def, nil
}

// Load parses the named tree and builds it into e.
func (l *Loader) Load(e *runtime.Engine, name string) (*Tree, error) {
	def, err := l.Definition(name)
	if err != nil {
		return nil, err
	}
	return l.Build(e, def)
}

// Build instantiates def in e and validates the result. On error, nothing
// is left behind in the engine.
func (l *Loader) Build(e *runtime.Engine, def *Definition) (*Tree, error) {
	if err := def.Check(); err != nil {
		return nil, err
	}
	t := &Tree{
		Def:   def,
		Vars:  NewBindings(def.Vars),
		nodes: make(map[string]domain.NodeID),
	}
	root, err := l.build(e, t, &def.Root, domain.NoNode)
	if err == nil {
		t.Root = root
		err = e.Validate(root)
	}
	if err != nil {
		if root, ok := t.nodes[def.Root.Name]; ok {
			err = errors.Join(err, e.Destroy(root))
		}
		return nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	l.logger.Debug("tree built", "tree", def.Name, "nodes", len(t.nodes))
	return t, nil
}

func (l *Loader) build(e *runtime.Engine, t *Tree, n *Node, parent domain.NodeID) (domain.NodeID, error) {
	id, err := e.NewNode(n.Name, parent)
	if err != nil {
		return domain.NoNode, err
	}
	t.nodes[n.Name] = id

	behaviors, err := l.behaviors(t, n)
	if err != nil {
		return id, fmt.Errorf("node %s: %w", n.Name, err)
	}
	if err := e.Attach(id, behaviors...); err != nil {
		return id, fmt.Errorf("node %s: %w", n.Name, err)
	}
	if n.ScoreExpr != "" {
		t.scored = append(t.scored, id)
	}

	for i := range n.Children {
		if _, err := l.build(e, t, &n.Children[i], id); err != nil {
			return id, err
		}
	}

	if n.Score != nil {
		if err := e.SetScore(id, *n.Score); err != nil {
			return id, fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	return id, nil
}

func (l *Loader) behaviors(t *Tree, n *Node) ([]runtime.Behavior, error) {
	main, err := l.registry.Build(n.Kind, n.With)
	if err != nil {
		return nil, err
	}
	out := []runtime.Behavior{main}

	if n.ScoreExpr != "" {
		program, err := CompileScore(n.ScoreExpr)
		if err != nil {
			return nil, err
		}
		out = append(out, ExprScorer(program, t.Vars))
	}
	if n.Repeat != nil {
		rep, err := l.registry.Build(domain.KindRepeat, n.Repeat)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}
