package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// NodeState is a read-only view of one node.
type NodeState struct {
	ID          domain.NodeID         `json:"id"`
	Name        string                `json:"name"`
	Parent      domain.NodeID         `json:"parent,omitempty"`
	Children    []domain.NodeID       `json:"children,omitempty"`
	Kinds       []domain.BehaviorKind `json:"kinds,omitempty"`
	Running     bool                  `json:"running,omitempty"`
	Interrupted bool                  `json:"interrupted,omitempty"`
	Outcome     domain.Outcome        `json:"outcome,omitempty"`
	Score       *float64              `json:"score,omitempty"`
	Propagates  bool                  `json:"propagates"`
}

// Inspect returns the subtree rooted at id in depth-first order.
func (e *Engine) Inspect(id domain.NodeID) ([]NodeState, error) {
	if _, err := e.lookup(id); err != nil {
		return nil, err
	}
	var out []NodeState
	var walk func(domain.NodeID)
	walk = func(id domain.NodeID) {
		n, ok := e.nodes[id]
		if !ok {
			return
		}
		st := NodeState{
			ID:          id,
			Name:        n.name,
			Parent:      n.parent,
			Children:    e.Children(id),
			Kinds:       e.Kinds(id),
			Running:     n.running,
			Interrupted: n.interrupted,
			Outcome:     n.outcome,
			Propagates:  n.propagates,
		}
		if n.hasScore {
			s := n.score
			st.Score = &s
		}
		out = append(out, st)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(id)
	return out, nil
}
