package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Behavior is logic attached to exactly one node. Install registers the
// behavior's handlers; it runs once, at attach time.
type Behavior interface {
	Kind() domain.BehaviorKind
	Traits() Traits
	Install(e *Engine, id domain.NodeID) error
}

// Traits declare what a behavior does with the protocol.
type Traits struct {
	// Produces: answers GetOutcome on its node.
	Produces bool
	// Composite: decides what happens when a child finishes.
	Composite bool
	// Intercepts: decides after the node's Outcome handlers whether the
	// outcome is forwarded to the parent.
	Intercepts bool
	// Propagates: outcomes bubble to the parent automatically.
	Propagates bool
}

// Validator is implemented by behaviors with structural requirements. It
// runs before the first request of the node.
type Validator interface {
	Validate(e *Engine, id domain.NodeID) error
}

// LeafFunc answers GetOutcome for a leaf: it must either Deliver an
// outcome or mark the node Running and deliver later.
type LeafFunc func(e *Engine, id domain.NodeID) error

type leaf struct {
	fn LeafFunc
}

// Leaf wraps fn as a producing behavior.
func Leaf(fn LeafFunc) Behavior {
	return &leaf{fn: fn}
}

// Predicate is a leaf that passes when fn returns true.
func Predicate(fn func() bool) Behavior {
	return &leaf{fn: func(e *Engine, id domain.NodeID) error {
		return e.Deliver(id, domain.OutcomeFromBool(fn()))
	}}
}

func (l *leaf) Kind() domain.BehaviorKind { return domain.KindLeaf }

func (l *leaf) Traits() Traits { return Traits{Produces: true, Propagates: true} }

func (l *leaf) Install(e *Engine, id domain.NodeID) error {
	return e.Handle(id, domain.EventGetOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
		return l.fn(e, id)
	})
}

// EndWith resolves synchronously with a fixed outcome.
type EndWith struct {
	Outcome domain.Outcome
}

func (b *EndWith) Kind() domain.BehaviorKind { return domain.KindEndWith }

func (b *EndWith) Traits() Traits { return Traits{Produces: true, Propagates: true} }

func (b *EndWith) Install(e *Engine, id domain.NodeID) error {
	return e.Handle(id, domain.EventGetOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
		return e.Deliver(id, b.Outcome)
	})
}

func (b *EndWith) Validate(_ *Engine, id domain.NodeID) error {
	if !b.Outcome.Valid() {
		return &domain.StructuralError{NodeID: id, Kind: b.Kind(), Reason: "outcome must be pass or fail"}
	}
	return nil
}

// SucceedTimes passes its first N requests and fails every later one.
type SucceedTimes struct {
	N     int
	calls int
}

func (b *SucceedTimes) Kind() domain.BehaviorKind { return domain.KindSucceedTimes }

func (b *SucceedTimes) Traits() Traits { return Traits{Produces: true, Propagates: true} }

func (b *SucceedTimes) Install(e *Engine, id domain.NodeID) error {
	return e.Handle(id, domain.EventGetOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
		b.calls++
		return e.Deliver(id, domain.OutcomeFromBool(b.calls <= b.N))
	})
}

// Calls returns how many times the leaf was requested.
func (b *SucceedTimes) Calls() int { return b.calls }

// BubbleUp makes a plain container resolve with whatever its child
// resolves with, and forwards its own outcome verbatim.
type BubbleUp struct{}

func (b *BubbleUp) Kind() domain.BehaviorKind { return domain.KindBubbleUp }

func (b *BubbleUp) Traits() Traits {
	return Traits{Composite: true, Intercepts: true, Propagates: false}
}

func (b *BubbleUp) Install(e *Engine, id domain.NodeID) error {
	if err := e.Handle(id, domain.EventChildFinished, func(e *Engine, id domain.NodeID, ev Event) error {
		if ev.Interrupted {
			return nil
		}
		// Every child result starts a new round of the container.
		e.ClearOutcome(id)
		return e.Deliver(id, ev.Outcome)
	}); err != nil {
		return err
	}
	return e.intercept(id, func(e *Engine, id domain.NodeID, ev Event) error {
		return e.Bubble(id, ev)
	})
}

// Invert resolves with the flipped outcome of its only child.
type Invert struct{}

func (b *Invert) Kind() domain.BehaviorKind { return domain.KindInvert }

func (b *Invert) Traits() Traits {
	return Traits{Produces: true, Composite: true, Propagates: true}
}

func (b *Invert) Validate(e *Engine, id domain.NodeID) error {
	if n := len(e.Children(id)); n != 1 {
		return &domain.StructuralError{NodeID: id, Kind: b.Kind(), Reason: "needs exactly one child"}
	}
	return nil
}

func (b *Invert) Install(e *Engine, id domain.NodeID) error {
	return installComposite(e, id, compositeHandlers{
		request: func(e *Engine, id domain.NodeID) error {
			return e.Request(e.Children(id)[0])
		},
		child: func(e *Engine, id domain.NodeID, ev Event) error {
			return e.Deliver(id, ev.Outcome.Invert())
		},
	})
}

// ScoreFunc computes a node's score on demand. ok=false means "no score".
type ScoreFunc func(e *Engine, id domain.NodeID) (score float64, ok bool, err error)

// Scorer attaches a score source that ScoreSelector pulls on every
// selection pass.
type Scorer struct {
	Fn ScoreFunc
}

func (b *Scorer) Kind() domain.BehaviorKind { return domain.KindScorer }

func (b *Scorer) Traits() Traits { return Traits{Propagates: true} }

func (b *Scorer) Install(e *Engine, id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	n.scorer = b.Fn
	return nil
}

func (b *Scorer) Validate(_ *Engine, id domain.NodeID) error {
	if b.Fn == nil {
		return &domain.StructuralError{NodeID: id, Kind: b.Kind(), Reason: "no score function"}
	}
	return nil
}
