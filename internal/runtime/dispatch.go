package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Event is delivered to a node through Send.
type Event struct {
	Kind domain.EventKind
	// Child is the finished child for EventChildFinished and the scored
	// child for EventScoreChanged.
	Child   domain.NodeID
	Outcome domain.Outcome
	// Interrupted marks outcomes produced by nodes that had been interrupted.
	Interrupted bool
	Payload     any
}

// Handler reacts to an event on a node. A returned error aborts the
// dispatch and is surfaced to whoever started it.
type Handler func(e *Engine, id domain.NodeID, ev Event) error

// Handle registers h for events of kind on node id. Handlers run in
// registration order.
func (e *Engine) Handle(id domain.NodeID, kind domain.EventKind, h Handler) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	n.handlers[kind] = append(n.handlers[kind], h)
	return nil
}

// Observe registers h for events of kind on every node. Observers run
// before the node's own handlers.
func (e *Engine) Observe(kind domain.EventKind, h Handler) {
	e.observers[kind] = append(e.observers[kind], h)
}

// Send invokes every handler registered for ev.Kind on the node,
// synchronously. A node without handlers ignores the event.
func (e *Engine) Send(id domain.NodeID, ev Event) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}

	for _, h := range e.observers[ev.Kind] {
		if err := h(e, id, ev); err != nil {
			return err
		}
	}

	// Snapshot: handlers may register more handlers while running.
	hs := n.handlers[ev.Kind]
	for i := 0; i < len(hs); i++ {
		if err := hs[i](e, id, ev); err != nil {
			return err
		}
		if !e.Exists(id) {
			return nil
		}
	}
	return nil
}

// Propagate sends ev to the node and then to its parent, unless the node
// does not propagate.
func (e *Engine) Propagate(id domain.NodeID, ev Event) error {
	if err := e.Send(id, ev); err != nil {
		return err
	}
	n, ok := e.nodes[id]
	if !ok || !n.propagates || n.parent.IsZero() {
		return nil
	}
	return e.Send(n.parent, ev)
}

// Bubble notifies the parent that id finished with ev's outcome. It ignores
// propagation flags: behaviors that suppress automatic bubbling use it to
// forward an outcome explicitly.
func (e *Engine) Bubble(id domain.NodeID, ev Event) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if n.parent.IsZero() {
		return nil
	}
	if _, ok := e.nodes[n.parent]; !ok {
		return nil
	}
	return e.Send(n.parent, Event{
		Kind:        domain.EventChildFinished,
		Child:       id,
		Outcome:     ev.Outcome,
		Interrupted: ev.Interrupted,
	})
}
