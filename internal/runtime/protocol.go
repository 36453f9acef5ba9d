package runtime

import (
	"fmt"
	"math"

	"github.com/aretw0/arbor/pkg/domain"
)

// Request asks a node for its outcome. The node's previous outcome is
// cleared and GetOutcome is sent. Running nodes are left alone.
func (e *Engine) Request(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if n.running {
		return nil
	}
	if err := e.validate(n); err != nil {
		return err
	}

	n.outcome = 0
	n.interrupted = false
	n.round++

	e.logger.Debug("request", "node", n.name, "id", id)
	if e.hooks.OnRequest != nil {
		e.hooks.OnRequest(e.ctx, e.nodeEvent(n, domain.EventGetOutcome))
	}
	return e.Send(id, Event{Kind: domain.EventGetOutcome})
}

// SetRunning marks a node as pending. Its outcome is cleared.
func (e *Engine) SetRunning(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	n.running = true
	n.outcome = 0
	return nil
}

// IsRunning reports whether the node is pending.
func (e *Engine) IsRunning(id domain.NodeID) bool {
	n, ok := e.nodes[id]
	return ok && n.running
}

// OutcomeOf returns the node's resolved outcome for the current round.
func (e *Engine) OutcomeOf(id domain.NodeID) (domain.Outcome, bool) {
	n, ok := e.nodes[id]
	if !ok || n.outcome == 0 {
		return 0, false
	}
	return n.outcome, true
}

// ClearOutcome forgets the node's outcome, preparing it for a new round.
func (e *Engine) ClearOutcome(id domain.NodeID) {
	if n, ok := e.nodes[id]; ok {
		n.outcome = 0
	}
}

// Deliver resolves a node. Running is removed, any external task handle is
// released, Running descendants are interrupted and Outcome is sent to the
// node. Unless the node suppresses propagation, its parent then receives
// ChildFinished. Deliveries to destroyed or already resolved nodes are
// dropped.
func (e *Engine) Deliver(id domain.NodeID, o domain.Outcome) error {
	if !o.Valid() {
		return fmt.Errorf("deliver %s to %s: invalid outcome", o, id)
	}
	n, ok := e.nodes[id]
	if !ok {
		e.logger.Debug("outcome dropped", "id", id, "outcome", o)
		return nil
	}
	if !n.running && n.outcome.Valid() {
		e.logger.Debug("outcome dropped, node already resolved", "node", n.name, "id", id, "outcome", o)
		return nil
	}

	interrupted := n.interrupted
	round := n.round
	n.running = false
	n.interrupted = false
	if n.task != nil {
		e.releaseTask(n, n.task)
		n.task = nil
	}
	n.outcome = o

	e.logger.Debug("outcome", "node", n.name, "id", id, "outcome", o, "interrupted", interrupted)
	if e.hooks.OnOutcome != nil {
		ev := e.nodeEvent(n, domain.EventOutcome)
		ev.Outcome = o
		ev.Interrupted = interrupted
		e.hooks.OnOutcome(e.ctx, ev)
	}

	if err := e.interruptDescendants(n); err != nil {
		return err
	}

	ev := Event{Kind: domain.EventOutcome, Outcome: o, Interrupted: interrupted}
	if err := e.Send(id, ev); err != nil {
		return err
	}

	// A local handler may have destroyed the node or started a new round.
	n, ok = e.nodes[id]
	if !ok || n.running || n.round != round {
		return nil
	}
	if n.intercept != nil {
		return n.intercept(e, id, ev)
	}
	if !n.propagates {
		return nil
	}
	return e.Bubble(id, ev)
}

// Interrupt asks a Running node to stop. The node keeps Running until its
// behavior resolves it. Interrupting a node that is not Running does nothing.
func (e *Engine) Interrupt(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !n.running || n.interrupted {
		return nil
	}
	n.interrupted = true

	e.logger.Debug("interrupt", "node", n.name, "id", id)
	if e.hooks.OnInterrupt != nil {
		e.hooks.OnInterrupt(e.ctx, e.nodeEvent(n, domain.EventInterrupt))
	}
	return e.Send(id, Event{Kind: domain.EventInterrupt})
}

// IsInterrupted reports whether the node was interrupted in its current round.
func (e *Engine) IsInterrupted(id domain.NodeID) bool {
	n, ok := e.nodes[id]
	return ok && n.interrupted
}

func (e *Engine) interruptDescendants(n *node) error {
	var pending []domain.NodeID
	var walk func(*node)
	walk = func(p *node) {
		for _, c := range p.children {
			child, ok := e.nodes[c]
			if !ok {
				continue
			}
			if child.running {
				pending = append(pending, c)
			}
			walk(child)
		}
	}
	walk(n)

	for _, id := range pending {
		if !e.Exists(id) {
			continue
		}
		if err := e.Interrupt(id); err != nil {
			return err
		}
	}
	return nil
}

// SetScore sets the node's score and notifies its parent.
func (e *Engine) SetScore(id domain.NodeID, score float64) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if math.IsNaN(score) {
		return fmt.Errorf("score of %s: NaN", id)
	}
	if n.hasScore && n.score == score {
		return nil
	}
	n.score = score
	n.hasScore = true
	return e.scoreChanged(n)
}

// ClearScore removes the node's score and notifies its parent.
func (e *Engine) ClearScore(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !n.hasScore {
		return nil
	}
	n.score = 0
	n.hasScore = false
	return e.scoreChanged(n)
}

// Rescore notifies the parent that the node's scorer may now return a
// different value. A ScoreSelector parent re-selects on the next Tick.
func (e *Engine) Rescore(id domain.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	return e.scoreChanged(n)
}

// ScoreOf returns the node's current score.
func (e *Engine) ScoreOf(id domain.NodeID) (float64, bool) {
	n, ok := e.nodes[id]
	if !ok || !n.hasScore {
		return 0, false
	}
	return n.score, true
}

func (e *Engine) scoreChanged(n *node) error {
	if n.parent.IsZero() {
		return nil
	}
	if _, ok := e.nodes[n.parent]; !ok {
		return nil
	}
	return e.Send(n.parent, Event{Kind: domain.EventScoreChanged, Child: n.id})
}

// refreshScore pulls a fresh score from the node's scorer, if any. It does
// not notify the parent: callers are the selection pass itself.
func (e *Engine) refreshScore(id domain.NodeID) error {
	n, ok := e.nodes[id]
	if !ok || n.scorer == nil {
		return nil
	}
	score, ok, err := n.scorer(e, id)
	if err != nil {
		return fmt.Errorf("score %s: %w", n.name, err)
	}
	if !ok || math.IsNaN(score) {
		n.score, n.hasScore = 0, false
		return nil
	}
	n.score, n.hasScore = score, true
	return nil
}

func (e *Engine) nodeEvent(n *node, kind domain.EventKind) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Kind: kind},
		NodeID:    n.id,
		NodeName:  n.name,
	}
}
