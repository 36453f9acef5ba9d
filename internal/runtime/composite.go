package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

type compositeHandlers struct {
	// request runs after the node is marked Running.
	request func(e *Engine, id domain.NodeID) error
	// child runs for ChildFinished while the node is Running, never for
	// interrupted children.
	child func(e *Engine, id domain.NodeID, ev Event) error
}

// installComposite wires the protocol shared by every composite: Running
// while children work, stale results from interrupted children dropped,
// Fail on interrupt, child outcomes cleared when the composite resolves.
func installComposite(e *Engine, id domain.NodeID, h compositeHandlers) error {
	handlers := []struct {
		kind domain.EventKind
		fn   Handler
	}{
		{domain.EventGetOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
			if err := e.SetRunning(id); err != nil {
				return err
			}
			return h.request(e, id)
		}},
		{domain.EventChildFinished, func(e *Engine, id domain.NodeID, ev Event) error {
			if ev.Interrupted {
				e.ClearOutcome(ev.Child)
				return nil
			}
			if !e.IsRunning(id) {
				return nil
			}
			return h.child(e, id, ev)
		}},
		{domain.EventInterrupt, func(e *Engine, id domain.NodeID, _ Event) error {
			// An earlier handler may already have resolved the node.
			if !e.IsRunning(id) {
				return nil
			}
			return e.Deliver(id, domain.Fail)
		}},
		{domain.EventOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
			for _, c := range e.Children(id) {
				e.ClearOutcome(c)
			}
			return nil
		}},
	}
	for _, h := range handlers {
		if err := e.Handle(id, h.kind, h.fn); err != nil {
			return err
		}
	}
	return nil
}

// Sequence runs children left to right. The first Fail fails the
// sequence; Pass after the last child. An empty sequence passes.
//
// The cursor is the first child without an outcome this round.
type Sequence struct{}

func (b *Sequence) Kind() domain.BehaviorKind { return domain.KindSequence }

func (b *Sequence) Traits() Traits {
	return Traits{Produces: true, Composite: true, Propagates: true}
}

func (b *Sequence) Install(e *Engine, id domain.NodeID) error {
	return installComposite(e, id, compositeHandlers{
		request: func(e *Engine, id domain.NodeID) error {
			return advance(e, id, domain.Pass)
		},
		child: func(e *Engine, id domain.NodeID, ev Event) error {
			if ev.Outcome == domain.Fail {
				return e.Deliver(id, domain.Fail)
			}
			return advance(e, id, domain.Pass)
		},
	})
}

// Fallback runs children left to right until one passes. An empty
// fallback fails.
type Fallback struct{}

func (b *Fallback) Kind() domain.BehaviorKind { return domain.KindFallback }

func (b *Fallback) Traits() Traits {
	return Traits{Produces: true, Composite: true, Propagates: true}
}

func (b *Fallback) Install(e *Engine, id domain.NodeID) error {
	return installComposite(e, id, compositeHandlers{
		request: func(e *Engine, id domain.NodeID) error {
			return advance(e, id, domain.Fail)
		},
		child: func(e *Engine, id domain.NodeID, ev Event) error {
			if ev.Outcome == domain.Pass {
				return e.Deliver(id, domain.Pass)
			}
			return advance(e, id, domain.Fail)
		},
	})
}

// advance requests the first child without an outcome, or delivers
// exhausted when every child has one.
func advance(e *Engine, id domain.NodeID, exhausted domain.Outcome) error {
	for _, c := range e.Children(id) {
		if _, ok := e.OutcomeOf(c); !ok {
			return e.Request(c)
		}
	}
	return e.Deliver(id, exhausted)
}

// Parallel requests every child at once. It fails as soon as one child
// fails and passes when all have passed.
type Parallel struct{}

func (b *Parallel) Kind() domain.BehaviorKind { return domain.KindParallel }

func (b *Parallel) Traits() Traits {
	return Traits{Produces: true, Composite: true, Propagates: true}
}

func (b *Parallel) Install(e *Engine, id domain.NodeID) error {
	return installComposite(e, id, compositeHandlers{
		request: func(e *Engine, id domain.NodeID) error {
			children := e.Children(id)
			if len(children) == 0 {
				return e.Deliver(id, domain.Pass)
			}
			for _, c := range children {
				if !e.IsRunning(id) {
					return nil
				}
				if err := e.Request(c); err != nil {
					return err
				}
			}
			return nil
		},
		child: func(e *Engine, id domain.NodeID, ev Event) error {
			if ev.Outcome == domain.Fail {
				return e.Deliver(id, domain.Fail)
			}
			for _, c := range e.Children(id) {
				if o, ok := e.OutcomeOf(c); !ok || o != domain.Pass {
					return nil
				}
			}
			return e.Deliver(id, domain.Pass)
		},
	})
}
