package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Engine owns one execution tree: the node store, the dispatcher and the
// run queues. It is single-owner: every method except Post must be called
// from the goroutine that drives the engine.
type Engine struct {
	nodes  map[domain.NodeID]*node
	nextID domain.NodeID

	// owners maps attached behavior values to the node holding them.
	owners map[Behavior]domain.NodeID

	observers map[domain.EventKind][]Handler

	deferred []func() error
	mailbox  *mailbox

	ctx    context.Context
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

type node struct {
	id       domain.NodeID
	name     string
	parent   domain.NodeID
	children []domain.NodeID

	behaviors []Behavior
	handlers  map[domain.EventKind][]Handler
	traits    Traits
	validated bool

	// propagates is the AND of every attached behavior's Propagates trait.
	propagates bool
	// intercept replaces automatic bubbling after local Outcome handlers ran.
	intercept Handler

	running     bool
	interrupted bool
	outcome     domain.Outcome
	// round counts requests; Deliver uses it to detect a round restarted by a handler.
	round uint64

	score    float64
	hasScore bool
	scorer   ScoreFunc

	task *TaskHandle
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithContext sets the base context external tasks derive from and hooks receive.
func WithContext(ctx context.Context) EngineOption {
	return func(e *Engine) {
		if ctx != nil {
			e.ctx = ctx
		}
	}
}

// WithClock overrides the time source used for hook timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an empty engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		nodes:     make(map[domain.NodeID]*node),
		owners:    make(map[Behavior]domain.NodeID),
		observers: make(map[domain.EventKind][]Handler),
		mailbox:   newMailbox(),
		ctx:       context.Background(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// NewNode creates a node. parent may be domain.NoNode for a root.
func (e *Engine) NewNode(name string, parent domain.NodeID) (domain.NodeID, error) {
	var p *node
	if !parent.IsZero() {
		var err error
		if p, err = e.lookup(parent); err != nil {
			return domain.NoNode, fmt.Errorf("parent of %q: %w", name, err)
		}
	}

	e.nextID++
	n := &node{
		id:         e.nextID,
		name:       name,
		parent:     parent,
		handlers:   make(map[domain.EventKind][]Handler),
		propagates: true,
	}
	e.nodes[n.id] = n
	if p != nil {
		p.children = append(p.children, n.id)
	}
	return n.id, nil
}

// Attach installs behaviors on a node, in order.
//
// Kinds are resolved once here. A node accepts at most one producer, one
// composite and one interceptor, and never two behaviors of the same kind.
func (e *Engine) Attach(id domain.NodeID, behaviors ...Behavior) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}

	for _, b := range behaviors {
		if b == nil {
			return fmt.Errorf("attach nil behavior to %s: %w", id, domain.ErrBehaviorConflict)
		}
		if err := e.checkAttach(n, b); err != nil {
			return err
		}

		if err := b.Install(e, id); err != nil {
			return fmt.Errorf("install %s on %s: %w", b.Kind(), id, err)
		}

		t := b.Traits()
		n.behaviors = append(n.behaviors, b)
		n.traits.Produces = n.traits.Produces || t.Produces
		n.traits.Composite = n.traits.Composite || t.Composite
		n.traits.Intercepts = n.traits.Intercepts || t.Intercepts
		n.propagates = n.propagates && t.Propagates
		n.validated = false
		if owned(b) {
			e.owners[b] = id
		}

		e.logger.Debug("behavior attached", "node", n.name, "id", id, "kind", b.Kind())
	}
	return nil
}

// owned reports whether b is a pointer to per-node state. Pointers to
// zero-size values may share one address, so stateless behaviors are not
// tracked.
func owned(b Behavior) bool {
	t := reflect.TypeOf(b)
	return t.Kind() == reflect.Pointer && t.Elem().Size() > 0
}

func (e *Engine) checkAttach(n *node, b Behavior) error {
	if owned(b) {
		if owner, ok := e.owners[b]; ok {
			return fmt.Errorf("%s already on %s: %w", b.Kind(), owner, domain.ErrBehaviorAttached)
		}
	}

	t := b.Traits()
	for _, have := range n.behaviors {
		if have.Kind() == b.Kind() {
			return fmt.Errorf("%s twice on %s: %w", b.Kind(), n.id, domain.ErrBehaviorConflict)
		}
	}
	switch {
	case t.Produces && n.traits.Produces:
		return fmt.Errorf("%s on %s: node already answers %s: %w", b.Kind(), n.id, domain.EventGetOutcome, domain.ErrBehaviorConflict)
	case t.Composite && n.traits.Composite:
		return fmt.Errorf("%s on %s: node already has a composite: %w", b.Kind(), n.id, domain.ErrBehaviorConflict)
	case t.Intercepts && n.traits.Intercepts:
		return fmt.Errorf("%s on %s: node outcome already intercepted: %w", b.Kind(), n.id, domain.ErrBehaviorConflict)
	}
	return nil
}

// Validate checks the structural requirements of every behavior in the
// subtree rooted at id.
func (e *Engine) Validate(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if err := e.validate(n); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := e.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) validate(n *node) error {
	if n.validated {
		return nil
	}
	for _, b := range n.behaviors {
		v, ok := b.(Validator)
		if !ok {
			continue
		}
		if err := v.Validate(e, n.id); err != nil {
			return err
		}
	}
	n.validated = true
	return nil
}

// Destroy removes a node and its descendants. Outstanding external tasks in
// the subtree are released, which cancels their work.
func (e *Engine) Destroy(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if p, ok := e.nodes[n.parent]; ok {
		p.children = remove(p.children, id)
	}
	e.destroy(n)
	return nil
}

func (e *Engine) destroy(n *node) {
	for _, c := range n.children {
		if child, ok := e.nodes[c]; ok {
			e.destroy(child)
		}
	}
	if n.task != nil {
		e.releaseTask(n, n.task)
		n.task = nil
	}
	for _, b := range n.behaviors {
		if owned(b) {
			delete(e.owners, b)
		}
	}
	delete(e.nodes, n.id)
	e.logger.Debug("node destroyed", "node", n.name, "id", n.id)
}

// Exists reports whether id names a live node.
func (e *Engine) Exists(id domain.NodeID) bool {
	_, ok := e.nodes[id]
	return ok
}

// Name returns the node name, or "" for unknown nodes.
func (e *Engine) Name(id domain.NodeID) string {
	if n, ok := e.nodes[id]; ok {
		return n.name
	}
	return ""
}

// Parent returns the node's parent, or NoNode.
func (e *Engine) Parent(id domain.NodeID) domain.NodeID {
	if n, ok := e.nodes[id]; ok {
		return n.parent
	}
	return domain.NoNode
}

// Children returns a copy of the node's ordered children.
func (e *Engine) Children(id domain.NodeID) []domain.NodeID {
	n, ok := e.nodes[id]
	if !ok {
		return nil
	}
	out := make([]domain.NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Kinds returns the kinds attached to a node, in attach order.
func (e *Engine) Kinds(id domain.NodeID) []domain.BehaviorKind {
	n, ok := e.nodes[id]
	if !ok {
		return nil
	}
	out := make([]domain.BehaviorKind, 0, len(n.behaviors))
	for _, b := range n.behaviors {
		out = append(out, b.Kind())
	}
	return out
}

// intercept installs the handler that decides, after the node's own
// Outcome handlers, whether and how an outcome reaches the parent.
func (e *Engine) intercept(id domain.NodeID, h Handler) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	n.intercept = h
	return nil
}

// Propagates reports whether outcomes of id bubble to its parent automatically.
func (e *Engine) Propagates(id domain.NodeID) bool {
	if n, ok := e.nodes[id]; ok {
		return n.propagates
	}
	return false
}

func (e *Engine) lookup(id domain.NodeID) (*node, error) {
	if n, ok := e.nodes[id]; ok {
		return n, nil
	}
	if !id.IsZero() && id <= e.nextID {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrNodeDestroyed)
	}
	return nil, fmt.Errorf("%s: %w", id, domain.ErrNodeNotFound)
}

func remove(ids []domain.NodeID, id domain.NodeID) []domain.NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
