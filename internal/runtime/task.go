package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Emitter sends a progress payload to the task's node. It may be called
// from the task goroutine; delivery happens on the dispatch goroutine.
type Emitter func(payload any)

// TaskFunc is work run off the dispatch goroutine. A non-nil error
// resolves the node with Fail. The work must return soon after ctx is done.
type TaskFunc func(ctx context.Context, emit Emitter) (domain.Outcome, error)

// TaskHandle owns the cancellation of one external task. Only the node that
// spawned it holds it.
type TaskHandle struct {
	node    domain.NodeID
	cancel  context.CancelFunc
	started time.Time

	once     sync.Once
	finished atomic.Bool
	released atomic.Bool

	// lateInterrupt is set when Interrupt arrived after the work finished.
	lateInterrupt bool
}

// Node returns the owning node.
func (h *TaskHandle) Node() domain.NodeID { return h.node }

// Released reports whether the handle's context was cancelled.
func (h *TaskHandle) Released() bool { return h.released.Load() }

// TaskOf returns the node's outstanding handle, or nil.
func (e *Engine) TaskOf(id domain.NodeID) *TaskHandle {
	if n, ok := e.nodes[id]; ok {
		return n.task
	}
	return nil
}

// Spawn marks the node Running and starts fn on its own goroutine.
// Progress and the final outcome re-enter through Post; results of a
// handle that is no longer the node's current one are discarded.
func (e *Engine) Spawn(id domain.NodeID, fn TaskFunc) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if n.task != nil {
		e.releaseTask(n, n.task)
		n.task = nil
	}
	if err := e.SetRunning(id); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(e.ctx)
	h := &TaskHandle{node: id, cancel: cancel, started: e.now()}
	n.task = h

	e.logger.Debug("task spawned", "node", n.name, "id", id)
	if e.hooks.OnTaskSpawn != nil {
		e.hooks.OnTaskSpawn(e.ctx, &domain.TaskEvent{Timestamp: h.started, NodeID: id, NodeName: n.name})
	}

	emit := func(payload any) {
		e.Post(func() error {
			return e.progress(id, h, payload)
		})
	}

	go func() {
		o, err := runTask(ctx, fn, emit)
		h.finished.Store(true)
		e.Post(func() error {
			return e.complete(id, h, o, err)
		})
	}()
	return nil
}

func runTask(ctx context.Context, fn TaskFunc, emit Emitter) (o domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			o, err = domain.Fail, fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn(ctx, emit)
}

func (e *Engine) progress(id domain.NodeID, h *TaskHandle, payload any) error {
	n, ok := e.nodes[id]
	if !ok || n.task != h {
		return nil
	}
	if e.hooks.OnProgress != nil {
		ev := e.nodeEvent(n, domain.EventProgress)
		ev.Payload = payload
		e.hooks.OnProgress(e.ctx, ev)
	}
	return e.Send(id, Event{Kind: domain.EventProgress, Payload: payload})
}

func (e *Engine) complete(id domain.NodeID, h *TaskHandle, o domain.Outcome, err error) error {
	n, ok := e.nodes[id]
	if !ok || n.task != h {
		e.logger.Warn("stale task completion dropped", "id", id, "outcome", o)
		return nil
	}
	switch {
	case err != nil:
		e.logger.Debug("task failed", "node", n.name, "id", id, "err", err)
		o = domain.Fail
	case h.lateInterrupt:
		o = domain.Fail
	case !o.Valid():
		o = domain.Fail
	}
	return e.Deliver(id, o)
}

// releaseTask cancels the work of h, once. It does not detach h from the
// node: after an interrupt the completion still arrives and resolves it.
func (e *Engine) releaseTask(n *node, h *TaskHandle) {
	h.once.Do(func() {
		h.released.Store(true)
		h.cancel()
		e.logger.Debug("task released", "node", n.name, "id", n.id, "cancelled", !h.finished.Load())
		if e.hooks.OnTaskRelease != nil {
			e.hooks.OnTaskRelease(e.ctx, &domain.TaskEvent{
				Timestamp: e.now(),
				NodeID:    n.id,
				NodeName:  n.name,
				Duration:  e.now().Sub(h.started),
				Cancelled: !h.finished.Load(),
			})
		}
	})
}

// ExternalTask bridges a TaskFunc into the protocol: GetOutcome spawns the
// work, Interrupt cancels it and the node fails when the work returns.
type ExternalTask struct {
	Fn TaskFunc
}

func (b *ExternalTask) Kind() domain.BehaviorKind { return domain.KindExternalTask }

func (b *ExternalTask) Traits() Traits { return Traits{Produces: true, Propagates: true} }

func (b *ExternalTask) Validate(_ *Engine, id domain.NodeID) error {
	if b.Fn == nil {
		return &domain.StructuralError{NodeID: id, Kind: b.Kind(), Reason: "no task function"}
	}
	return nil
}

func (b *ExternalTask) Install(e *Engine, id domain.NodeID) error {
	if err := e.Handle(id, domain.EventGetOutcome, func(e *Engine, id domain.NodeID, _ Event) error {
		return e.Spawn(id, b.Fn)
	}); err != nil {
		return err
	}
	return e.Handle(id, domain.EventInterrupt, func(e *Engine, id domain.NodeID, _ Event) error {
		n, err := e.lookup(id)
		if err != nil || n.task == nil {
			return err
		}
		// Interrupt after the work finished wins over the natural result.
		if n.task.finished.Load() {
			n.task.lateInterrupt = true
		}
		e.releaseTask(n, n.task)
		return nil
	})
}
