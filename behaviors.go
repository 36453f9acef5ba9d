package arbor

import (
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

// Sequence runs children left to right until one fails.
func Sequence() Behavior { return &runtime.Sequence{} }

// Fallback runs children left to right until one passes.
func Fallback() Behavior { return &runtime.Fallback{} }

// Parallel runs all children at once; any failure fails the node.
func Parallel() Behavior { return &runtime.Parallel{} }

// ScoreSelector runs the highest scored child, preempting on score changes.
func ScoreSelector() Behavior { return &runtime.ScoreSelector{} }

// BubbleUp forwards the first child outcome as its own.
func BubbleUp() Behavior { return &runtime.BubbleUp{} }

// Invert flips the outcome of its single child.
func Invert() Behavior { return &runtime.Invert{} }

// EndWith resolves immediately with o.
func EndWith(o Outcome) Behavior { return &runtime.EndWith{Outcome: o} }

// SucceedTimes passes n times, then fails.
func SucceedTimes(n int) Behavior { return &runtime.SucceedTimes{N: n} }

// Leaf answers GetOutcome with fn.
func Leaf(fn LeafFunc) Behavior { return runtime.Leaf(fn) }

// Predicate passes when fn returns true.
func Predicate(fn func() bool) Behavior { return runtime.Predicate(fn) }

// Scorer attaches a score source pulled by a ScoreSelector parent.
func Scorer(fn ScoreFunc) Behavior { return &runtime.Scorer{Fn: fn} }

// ExternalTask runs fn on its own goroutine each time the node is requested.
func ExternalTask(fn TaskFunc) Behavior { return &runtime.ExternalTask{Fn: fn} }

// Repeat re-requests the node while its outcome matches the options.
func Repeat(opts ...RepeatOption) Behavior { return runtime.NewRepeat(opts...) }

// Retrigger is Repeat with Immediate latency: rounds run inside one dispatch.
func Retrigger(opts ...RepeatOption) Behavior {
	return runtime.NewRepeat(append(opts, runtime.WithLatency(runtime.Immediate))...)
}

// While repeats as long as the node resolves with o.
func While(o Outcome) RepeatOption { return runtime.While(o) }

// Forever repeats on every outcome until interrupted.
func Forever() RepeatOption { return runtime.Forever() }

// WithLatency selects NextTick or Immediate re-entry.
func WithLatency(l Latency) RepeatOption { return runtime.WithLatency(l) }

// ParseOutcome parses "pass" or "fail".
func ParseOutcome(s string) (Outcome, error) { return domain.ParseOutcome(s) }
