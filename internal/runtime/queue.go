package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// mailbox is the only engine state touched from other goroutines.
type mailbox struct {
	mu     sync.Mutex
	items  []func() error
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) post(fn func() error) {
	m.mu.Lock()
	m.items = append(m.items, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []func() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Post enqueues fn to run on the dispatch goroutine during the next Tick.
// It is safe to call from any goroutine.
func (e *Engine) Post(fn func() error) {
	e.mailbox.post(fn)
}

// Defer schedules fn for the next Tick. Work deferred while a Tick runs
// waits for the following one.
func (e *Engine) Defer(fn func() error) {
	e.deferred = append(e.deferred, fn)
}

// Pending reports whether a Tick would have work to do.
func (e *Engine) Pending() bool {
	return len(e.deferred) > 0 || e.mailbox.len() > 0
}

// Tick runs one dispatch cycle: deferred work first, then posted
// completions. It returns the number of items run. The first error aborts
// the cycle; remaining deferred work is kept for the next Tick.
func (e *Engine) Tick() (int, error) {
	batch := e.deferred
	e.deferred = nil

	ran := 0
	for i, fn := range batch {
		ran++
		if err := fn(); err != nil {
			rest := append([]func() error{}, batch[i+1:]...)
			e.deferred = append(rest, e.deferred...)
			return ran, err
		}
	}

	posted := e.mailbox.drain()
	for i, fn := range posted {
		ran++
		if err := fn(); err != nil {
			for _, rest := range posted[i+1:] {
				e.mailbox.post(rest)
			}
			return ran, err
		}
	}
	return ran, nil
}

// Wait blocks until work is pending or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Pending() {
		return nil
	}
	select {
	case <-e.mailbox.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run requests root and drives ticks until root resolves. If ctx ends
// first, root is interrupted, one more cycle runs so tasks observe the
// cancellation, and ctx's error is returned.
func (e *Engine) Run(ctx context.Context, root domain.NodeID) (domain.Outcome, error) {
	if err := e.Request(root); err != nil {
		return 0, err
	}

	for {
		if o, ok := e.OutcomeOf(root); ok && !e.IsRunning(root) {
			return o, nil
		}
		if !e.Exists(root) {
			return 0, fmt.Errorf("run %s: %w", root, domain.ErrNodeDestroyed)
		}

		if err := e.Wait(ctx); err != nil {
			if ierr := e.Interrupt(root); ierr != nil {
				e.logger.Warn("interrupt on cancel failed", "id", root, "err", ierr)
			}
			if _, terr := e.Tick(); terr != nil {
				e.logger.Warn("tick on cancel failed", "id", root, "err", terr)
			}
			return 0, err
		}
		if _, err := e.Tick(); err != nil {
			return 0, err
		}
	}
}
