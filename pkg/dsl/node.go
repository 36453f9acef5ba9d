package dsl

import (
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/loader"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node     loader.Node
	children []*NodeBuilder
}

// Node starts a node of any registered kind.
func Node(name string, kind domain.BehaviorKind, children ...*NodeBuilder) *NodeBuilder {
	return &NodeBuilder{
		node:     loader.Node{Name: name, Kind: kind},
		children: children,
	}
}

func Sequence(name string, children ...*NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindSequence, children...)
}

func Fallback(name string, children ...*NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindFallback, children...)
}

func Parallel(name string, children ...*NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindParallel, children...)
}

// ScoreSelector runs the child with the highest score. Give the children a
// Score or ScoreExpr.
func ScoreSelector(name string, children ...*NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindScoreSelector, children...)
}

func Invert(name string, child *NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindInvert, child)
}

func BubbleUp(name string, children ...*NodeBuilder) *NodeBuilder {
	return Node(name, domain.KindBubbleUp, children...)
}

// EndWith is a leaf that always resolves with o.
func EndWith(name string, o domain.Outcome) *NodeBuilder {
	return Node(name, domain.KindEndWith).With("outcome", o.String())
}

// SucceedTimes is a leaf that passes n times, then fails.
func SucceedTimes(name string, n int) *NodeBuilder {
	return Node(name, domain.KindSucceedTimes).With("n", n)
}

// Command runs an allow-listed command. args reach the process as
// ARBOR_ARG_* variables.
func Command(name, command string, args map[string]any) *NodeBuilder {
	n := Node(name, process.KindCommand).With("command", command)
	if len(args) > 0 {
		n.With("args", args)
	}
	return n
}

// With sets a kind parameter.
func (n *NodeBuilder) With(key string, value any) *NodeBuilder {
	if n.node.With == nil {
		n.node.With = make(map[string]any)
	}
	n.node.With[key] = value
	return n
}

// Score sets a fixed score.
func (n *NodeBuilder) Score(s float64) *NodeBuilder {
	n.node.Score = &s
	n.node.ScoreExpr = ""
	return n
}

// ScoreExpr sets a score expression, re-evaluated each time the parent
// selects.
func (n *NodeBuilder) ScoreExpr(src string) *NodeBuilder {
	n.node.ScoreExpr = src
	n.node.Score = nil
	return n
}

func (n *NodeBuilder) repeat(key string, value any) *NodeBuilder {
	if n.node.Repeat == nil {
		n.node.Repeat = make(map[string]any)
	}
	n.node.Repeat[key] = value
	return n
}

// RepeatWhile re-runs the node as long as it resolves with o.
func (n *NodeBuilder) RepeatWhile(o domain.Outcome) *NodeBuilder {
	return n.repeat("while", o.String())
}

// RetryOnFail re-runs the node within the same tick until it passes.
func (n *NodeBuilder) RetryOnFail() *NodeBuilder {
	return n.RepeatWhile(domain.Fail).Immediate()
}

// Forever re-runs the node until it is interrupted.
func (n *NodeBuilder) Forever() *NodeBuilder {
	return n.repeat("forever", true)
}

// Immediate makes a repeat re-run in the same tick instead of the next one.
func (n *NodeBuilder) Immediate() *NodeBuilder {
	return n.repeat("immediate", true)
}

// Children appends children.
func (n *NodeBuilder) Children(children ...*NodeBuilder) *NodeBuilder {
	n.children = append(n.children, children...)
	return n
}

// Build returns the underlying loader.Node with its subtree.
func (n *NodeBuilder) Build() loader.Node {
	out := n.node
	out.Children = nil
	for _, c := range n.children {
		out.Children = append(out.Children, c.Build())
	}
	return out
}
