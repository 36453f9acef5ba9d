package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// ScoreSelector runs the child with the highest score, preempting a lower
// scored Running child when scores change. Ties go to the leftmost child.
// With no scored child the selector stays pending.
//
// Score changes are coalesced: the selection pass runs on the next Tick.
type ScoreSelector struct {
	scheduled bool
}

func (b *ScoreSelector) Kind() domain.BehaviorKind { return domain.KindScoreSelector }

func (b *ScoreSelector) Traits() Traits {
	return Traits{Produces: true, Composite: true, Propagates: true}
}

func (b *ScoreSelector) Install(e *Engine, id domain.NodeID) error {
	if err := installComposite(e, id, compositeHandlers{
		request: b.evaluate,
		child: func(e *Engine, id domain.NodeID, _ Event) error {
			return b.evaluate(e, id)
		},
	}); err != nil {
		return err
	}
	return e.Handle(id, domain.EventScoreChanged, func(e *Engine, id domain.NodeID, _ Event) error {
		if !e.IsRunning(id) || b.scheduled {
			return nil
		}
		b.scheduled = true
		e.Defer(func() error {
			b.scheduled = false
			if !e.Exists(id) {
				return nil
			}
			return b.evaluate(e, id)
		})
		return nil
	})
}

// evaluate is one selection pass.
func (b *ScoreSelector) evaluate(e *Engine, id domain.NodeID) error {
	if !e.IsRunning(id) {
		return nil
	}
	children := e.Children(id)

	for _, c := range children {
		if o, ok := e.OutcomeOf(c); ok {
			return e.Deliver(id, o)
		}
	}

	best := domain.NoNode
	var bestScore float64
	for _, c := range children {
		if err := e.refreshScore(c); err != nil {
			return err
		}
		s, ok := e.ScoreOf(c)
		if !ok {
			continue
		}
		if best.IsZero() || s > bestScore {
			best, bestScore = c, s
		}
	}
	if best.IsZero() || e.IsRunning(best) {
		return nil
	}

	for _, c := range children {
		if c == best || !e.IsRunning(c) {
			continue
		}
		if err := e.Interrupt(c); err != nil {
			return err
		}
		// The interrupted child may have resolved the selector.
		if !e.IsRunning(id) {
			return nil
		}
	}
	return e.Request(best)
}
