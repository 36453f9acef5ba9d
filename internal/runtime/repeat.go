package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Latency controls when Repeat re-issues the request.
type Latency int

const (
	// NextTick re-requests the node on the following Tick.
	NextTick Latency = iota
	// Immediate re-requests the node within the same dispatch. A tree
	// whose leaves never stop matching recurses without bound.
	Immediate
)

// Repeat intercepts its node's outcome. While the outcome matches the
// stop predicate the node is requested again; any other outcome, or an
// interrupt, is forwarded to the parent once. Without a predicate the
// outcome is forwarded unchanged.
type Repeat struct {
	// While holds the outcome that keeps repeating. Zero means unset.
	While domain.Outcome
	// Forever repeats on every outcome until the node is interrupted.
	Forever bool
	Latency Latency

	waiting bool
	rounds  int
}

// RepeatOption configures a Repeat.
type RepeatOption func(*Repeat)

// While repeats as long as the node resolves with o.
func While(o domain.Outcome) RepeatOption {
	return func(r *Repeat) { r.While = o }
}

// Forever repeats regardless of outcome.
func Forever() RepeatOption {
	return func(r *Repeat) { r.Forever = true }
}

// WithLatency selects NextTick or Immediate re-entry.
func WithLatency(l Latency) RepeatOption {
	return func(r *Repeat) { r.Latency = l }
}

// NewRepeat builds a Repeat. Retrigger is NewRepeat(..., WithLatency(Immediate)).
func NewRepeat(opts ...RepeatOption) *Repeat {
	r := &Repeat{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repeat) Kind() domain.BehaviorKind { return domain.KindRepeat }

func (r *Repeat) Traits() Traits {
	return Traits{Intercepts: true, Propagates: false}
}

// Rounds returns how many times the node was re-requested.
func (r *Repeat) Rounds() int { return r.rounds }

func (r *Repeat) Validate(e *Engine, id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !n.traits.Produces {
		return &domain.StructuralError{NodeID: id, Kind: r.Kind(), Reason: "no behavior answers get_outcome on this node"}
	}
	if r.While != 0 && !r.While.Valid() {
		return &domain.StructuralError{NodeID: id, Kind: r.Kind(), Reason: "invalid stop outcome"}
	}
	return nil
}

func (r *Repeat) Install(e *Engine, id domain.NodeID) error {
	if err := e.intercept(id, r.onOutcome); err != nil {
		return err
	}
	// A pending next-tick round has no producer in flight to resolve it.
	return e.Handle(id, domain.EventInterrupt, func(e *Engine, id domain.NodeID, _ Event) error {
		if !r.waiting {
			return nil
		}
		r.waiting = false
		return e.Deliver(id, domain.Fail)
	})
}

func (r *Repeat) matches(o domain.Outcome) bool {
	if r.Forever {
		return true
	}
	return r.While != 0 && r.While == o
}

func (r *Repeat) onOutcome(e *Engine, id domain.NodeID, ev Event) error {
	r.waiting = false
	if ev.Interrupted || !r.matches(ev.Outcome) {
		return e.Bubble(id, ev)
	}

	r.rounds++
	if r.Latency == Immediate {
		return e.Request(id)
	}

	// Keep the node Running so nothing reads the intermediate outcome.
	if err := e.SetRunning(id); err != nil {
		return err
	}
	r.waiting = true
	e.Defer(func() error {
		if !r.waiting {
			return nil
		}
		r.waiting = false
		n, ok := e.nodes[id]
		if !ok {
			return nil
		}
		n.running = false
		return e.Request(id)
	})
	return nil
}
